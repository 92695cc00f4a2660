package engine

import "github.com/sydradb/sydradb/wal"

// Config configures Engine.Init. Configuration file parsing is an
// external collaborator, out of scope (spec.md §1); Config is just a
// plain struct built by the caller.
type Config struct {
	DataDir string

	FsyncPolicy wal.FsyncPolicy

	// MemtableMaxBytes triggers a flush once the in-memory buffer grows
	// past this size.
	MemtableMaxBytes int64

	// FlushIntervalMs triggers a flush (and, with FsyncInterval, a WAL
	// fsync) once this many milliseconds have elapsed since the last one.
	FlushIntervalMs int64

	// RetentionDays bounds how long a flushed segment is kept; applied
	// best-effort after every flush.
	RetentionDays int

	// ScanMemtable is the open-question knob from spec.md §9: when false
	// (the default, matching source behavior) QueryRange only sees
	// flushed data. When true, QueryRange additionally scans the
	// in-memory buffer for read-your-writes, at the cost of taking the
	// memtable's read path concurrently with the writer thread.
	ScanMemtable bool
}

func (c Config) withDefaults() Config {
	if c.MemtableMaxBytes <= 0 {
		c.MemtableMaxBytes = 64 << 20
	}
	if c.FlushIntervalMs <= 0 {
		c.FlushIntervalMs = 60_000
	}
	return c
}
