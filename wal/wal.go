// Package wal implements sydraDB's write-ahead log: an append-only,
// per-record-CRC binary log that makes ingest durable before a point is
// visible to a flush. The directory bootstrap / rotate / replay control
// flow is adapted from friggdb's wal.go (AllBlocks/NewBlock), generalized
// from friggdb's per-tenant block files to sydraDB's single rotating
// current.wal plus dated rotated files.
package wal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// FsyncPolicy controls when WAL writes are flushed to stable storage.
type FsyncPolicy int

const (
	// FsyncAlways fsyncs after every append.
	FsyncAlways FsyncPolicy = iota
	// FsyncInterval leaves fsync to the caller's own timer.
	FsyncInterval
	// FsyncNone never fsyncs explicitly.
	FsyncNone
)

const (
	recordTypePut = uint8(1)

	// maxRecordLen bounds a single WAL record; replay treats a length
	// outside (0, maxRecordLen] as corruption.
	maxRecordLen = 1 << 20

	// rotateThreshold is the byte size at which current.wal is rotated.
	rotateThreshold = 64 << 20

	currentFileName = "current.wal"
	walDirName      = "wal"
)

// RecordHeaderLen is the length of the fixed header+payload+crc on disk
// for a single Put record: len:u32 | type:u8 | series_id:u64 | ts:i64 |
// value_bits:u64 | crc32:u32.
const RecordHeaderLen = 4 + 1 + 8 + 8 + 8 + 4

// RecordContext receives replayed records in file, then in-file, order.
type RecordContext interface {
	OnRecord(seriesID uint64, ts int64, value float64)
}

// WAL is the append-only durability log for ingested points.
type WAL struct {
	dir    string
	policy FsyncPolicy
	logger log.Logger

	current        *os.File
	bytesWritten   int64
}

// Open ensures <dir>/wal exists and opens wal/current.wal in
// append+read mode. bytesWritten is initialized from the file's current
// size. logger is used to report corruption encountered during Replay
// (spec.md §7 category 1: logged, recovery stops replay for the
// offending file only); a nil logger is replaced with a no-op one,
// matching retention.Apply's convention.
func Open(dir string, policy FsyncPolicy, logger log.Logger) (*WAL, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	walDir := filepath.Join(dir, walDirName)
	if err := os.MkdirAll(walDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating wal directory")
	}

	path := filepath.Join(walDir, currentFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening current wal file")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat current wal file")
	}

	return &WAL{
		dir:          walDir,
		policy:       policy,
		logger:       logger,
		current:      f,
		bytesWritten: info.Size(),
	}, nil
}

// Append encodes and writes one Put record, returning the total bytes
// written (header + payload + crc).
func (w *WAL) Append(seriesID uint64, ts int64, value float64) (int64, error) {
	buf := make([]byte, RecordHeaderLen)

	payloadLen := uint32(1 + 8 + 8 + 8) // type..value_bits
	binary.LittleEndian.PutUint32(buf[0:4], payloadLen)
	buf[4] = recordTypePut
	binary.LittleEndian.PutUint64(buf[5:13], seriesID)
	binary.LittleEndian.PutUint64(buf[13:21], uint64(ts))
	binary.LittleEndian.PutUint64(buf[21:29], valueBits(value))

	crc := crc32.ChecksumIEEE(buf[4:29])
	binary.LittleEndian.PutUint32(buf[29:33], crc)

	n, err := w.current.Write(buf)
	if err != nil {
		return 0, errors.Wrap(err, "appending wal record")
	}

	w.bytesWritten += int64(n)

	if w.policy == FsyncAlways {
		if err := w.current.Sync(); err != nil {
			return 0, errors.Wrap(err, "fsync wal on append")
		}
	}

	return int64(n), nil
}

// Sync fsyncs the current WAL file. Used by the interval fsync policy.
func (w *WAL) Sync() error {
	return errors.Wrap(w.current.Sync(), "fsync wal")
}

// BytesWritten returns the current file's byte count since the last
// rotation.
func (w *WAL) BytesWritten() int64 {
	return w.bytesWritten
}

// RotateIfNeeded rotates current.wal to a dated file once it has reached
// the rotation threshold, and opens a fresh current.wal.
func (w *WAL) RotateIfNeeded(nowEpochMs int64) error {
	if w.bytesWritten < rotateThreshold {
		return nil
	}

	if err := w.current.Close(); err != nil {
		return errors.Wrap(err, "closing current wal before rotate")
	}

	oldPath := filepath.Join(w.dir, currentFileName)
	rotatedPath := filepath.Join(w.dir, fmt.Sprintf("%d.wal", nowEpochMs))
	if err := os.Rename(oldPath, rotatedPath); err != nil {
		return errors.Wrap(err, "renaming rotated wal file")
	}

	f, err := os.OpenFile(oldPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating new current wal file")
	}

	w.current = f
	w.bytesWritten = 0
	return nil
}

// Close releases the underlying file handle.
func (w *WAL) Close() error {
	return w.current.Close()
}

// Replay iterates every *.wal file in the wal directory, lexicographically
// sorted with current.wal forced last, invoking ctx.OnRecord for every
// well-formed record. A CRC mismatch, or a length of 0 or beyond
// maxRecordLen, stops replay of that file only; replay continues with the
// remaining files.
func (w *WAL) Replay(ctx RecordContext) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return errors.Wrap(err, "listing wal directory")
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".wal") {
			continue
		}
		names = append(names, e.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		if names[i] == currentFileName {
			return false
		}
		if names[j] == currentFileName {
			return true
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		if err := w.replayFile(filepath.Join(w.dir, name), ctx); err != nil {
			return err
		}
	}

	return nil
}

func (w *WAL) replayFile(path string, ctx RecordContext) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening wal file %s for replay", path)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var lenBuf [4]byte
		_, err := io.ReadFull(r, lenBuf[:])
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// short read mid-record is corruption; stop this file only.
			level.Warn(w.logger).Log("msg", "wal replay short read, stopping file", "path", path, "err", err)
			return nil
		}

		length := binary.LittleEndian.Uint32(lenBuf[:])
		if length == 0 || length > maxRecordLen {
			level.Error(w.logger).Log("msg", "wal replay bad record length, stopping file", "path", path, "length", length)
			return nil
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			level.Warn(w.logger).Log("msg", "wal replay short read, stopping file", "path", path, "err", err)
			return nil
		}

		var crcBuf [4]byte
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			level.Warn(w.logger).Log("msg", "wal replay short read, stopping file", "path", path, "err", err)
			return nil
		}
		wantCRC := binary.LittleEndian.Uint32(crcBuf[:])
		gotCRC := crc32.ChecksumIEEE(payload)
		if gotCRC != wantCRC {
			level.Error(w.logger).Log("msg", "wal replay crc mismatch, stopping file", "path", path)
			return nil
		}

		if len(payload) < 1 {
			return nil
		}
		recType := payload[0]
		if recType != recordTypePut || len(payload) < 1+8+8+8 {
			return nil
		}

		seriesID := binary.LittleEndian.Uint64(payload[1:9])
		ts := int64(binary.LittleEndian.Uint64(payload[9:17]))
		value := valueFromBits(binary.LittleEndian.Uint64(payload[17:25]))

		ctx.OnRecord(seriesID, ts, value)
	}
}
