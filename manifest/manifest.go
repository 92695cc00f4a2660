// Package manifest is the durable, append-only catalog of segment files.
// The in-memory mirror plus append-line-then-record-in-memory ordering is
// adapted from friggdb's readerWriter.blockLists (friggdb.go): a
// mutex-protected in-memory list that the disk write must precede, so a
// crash between disk and memory still leaves the next startup able to see
// the entry (friggdb achieves the analogous durability via per-block meta
// files plus a polled blocklist; sydraDB collapses this to one JSONL file
// per spec.md §4.3). Encoding uses json-iterator/go instead of
// encoding/json, matching the teacher's go.mod.
package manifest

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/sydradb/sydradb/internal/sid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const fileName = "MANIFEST"

// Entry is one segment's catalog record.
type Entry struct {
	SeriesID   sid.SeriesId `json:"series_id"`
	HourBucket int64        `json:"hour_bucket"`
	StartTs    int64        `json:"start_ts"`
	EndTs      int64        `json:"end_ts"`
	Count      uint32       `json:"count"`
	Path       string       `json:"path"`
}

// Manifest is the append-only JSONL segment catalog plus its in-memory
// mirror.
type Manifest struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
	file    *os.File
	logger  log.Logger
}

// LoadOrInit ensures segments/ and MANIFEST exist under dir, parses
// MANIFEST as newline-delimited JSON into the in-memory mirror, and keeps
// the file open for further appends. A malformed line is corruption
// (spec.md §7 category 1): it is logged and skipped, never fatal to
// startup. A nil logger is replaced with a no-op one, matching
// retention.Apply's convention.
func LoadOrInit(dir string, logger log.Logger) (*Manifest, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	if err := os.MkdirAll(filepath.Join(dir, "segments"), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating segments directory")
	}

	path := filepath.Join(dir, fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening manifest file")
	}

	m := &Manifest{path: path, file: f, logger: logger}

	if err := m.loadExisting(); err != nil {
		f.Close()
		return nil, err
	}

	return m, nil
}

func (m *Manifest) loadExisting() error {
	if _, err := m.file.Seek(0, 0); err != nil {
		return errors.Wrap(err, "seeking manifest file to read")
	}
	scanner := bufio.NewScanner(m.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			level.Error(m.logger).Log("msg", "manifest line corrupt, skipping", "err", err)
			continue
		}
		// duplicate the path into an owned string so the entry outlives
		// the scanner's internal buffer.
		e.Path = string(append([]byte(nil), e.Path...))
		m.entries = append(m.entries, e)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scanning manifest file")
	}

	if _, err := m.file.Seek(0, 2); err != nil {
		return errors.Wrap(err, "seeking manifest file to end")
	}
	return nil
}

// Add appends entry to disk, then to the in-memory mirror, preserving the
// fail-safe order: if the process dies between disk write and memory
// update, the next LoadOrInit still observes the entry on disk.
func (m *Manifest) Add(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "marshaling manifest entry")
	}
	line = append(line, '\n')

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.file.Seek(0, 2); err != nil {
		return errors.Wrap(err, "seeking manifest file to end before append")
	}
	if _, err := m.file.Write(line); err != nil {
		return errors.Wrap(err, "appending manifest entry")
	}

	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a read-only snapshot of the current entries, satisfying
// the "readers get an immutable-entry view" contract from spec.md §5
// without requiring callers to hold any lock.
func (m *Manifest) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MaxEndTs returns the largest EndTs recorded for seriesID, and whether
// any entry exists for it at all.
func (m *Manifest) MaxEndTs(seriesID sid.SeriesId) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := false
	var max int64
	for _, e := range m.entries {
		if e.SeriesID != seriesID {
			continue
		}
		if !found || e.EndTs > max {
			max = e.EndTs
			found = true
		}
	}
	return max, found
}

// Remove drops the entry for path from the in-memory mirror. It does not
// rewrite the on-disk file (the manifest is append-only); callers
// (retention) are responsible for deleting the underlying segment file
// themselves, in either order, since a missing file is skipped by
// readers.
func (m *Manifest) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.Path != path {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}

// Close releases the underlying file handle.
func (m *Manifest) Close() error {
	return m.file.Close()
}
