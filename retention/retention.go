// Package retention deletes expired segments and drops their manifest
// entries. The best-effort, tolerate-individual-failures fan-out is
// adapted from friggdb's pool.RunJobs usage in readerWriter.pollBlocklist
// (friggdb.go), which walks a block list concurrently and logs per-item
// failures without aborting the rest; here that's expressed with
// golang.org/x/sync/errgroup instead of the teacher's bespoke worker
// pool, since errgroup is already in the teacher's go.mod and is the
// simpler fit for "run these deletes concurrently, collect failures."
package retention

import (
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/sydradb/sydradb/manifest"
)

// Manifest is the subset of manifest.Manifest retention needs.
type Manifest interface {
	Entries() []manifest.Entry
	Remove(path string)
}

// Apply deletes every segment file whose EndTs is older than
// now - days*86400 seconds, and removes its manifest entry. Deletion of
// different files proceeds concurrently; a failure to remove one file is
// logged and does not block the others (spec.md §7 category 1: best
// effort, never propagates out of the writer loop).
func Apply(dir string, m Manifest, days int, now int64, logger log.Logger) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	cutoff := now - int64(days)*86400
	entries := m.Entries()

	var expired []manifest.Entry
	for _, e := range entries {
		if e.EndTs < cutoff {
			expired = append(expired, e)
		}
	}
	if len(expired) == 0 {
		return
	}

	var g errgroup.Group
	for _, e := range expired {
		e := e
		g.Go(func() error {
			full := filepath.Join(dir, e.Path)
			if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
				level.Warn(logger).Log("msg", "retention failed to remove segment file", "path", e.Path, "err", err)
				return nil
			}
			m.Remove(e.Path)
			return nil
		})
	}
	_ = g.Wait()
}
