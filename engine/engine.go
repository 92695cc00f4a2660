// Package engine is the storage-engine coordinator: it owns the WAL,
// memtable, manifest, tag index, ingest queue, and the background writer
// thread, and is the façade query execution calls back into. The overall
// shape — a coordinator struct owning storage sub-components plus a
// background poll/writer goroutine and a metrics struct — is grounded on
// friggdb's readerWriter (friggdb.go): New() wires sub-components and
// spawns a goroutine (there: runBlockListPollLoop; here: the writer
// loop), and Shutdown()/deinit release everything in one place.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/sydradb/sydradb/ingestqueue"
	"github.com/sydradb/sydradb/internal/sid"
	"github.com/sydradb/sydradb/internal/sydralog"
	"github.com/sydradb/sydradb/manifest"
	"github.com/sydradb/sydradb/retention"
	"github.com/sydradb/sydradb/segment"
	"github.com/sydradb/sydradb/tagindex"
	"github.com/sydradb/sydradb/wal"
)

// IngestItem is one point submitted for ingestion.
type IngestItem struct {
	SeriesID sid.SeriesId
	Ts       int64
	Value    float64
	TagsJSON string
}

// memtable is the per-series growable buffer of not-yet-flushed points,
// plus a byte counter. Mutation is confined to the writer thread
// (spec.md §5); the mutex guards both the map and the byte counter so
// Flush can safely iterate it from the writer thread while metrics
// readers take Bytes() concurrently.
type memtable struct {
	mu     sync.Mutex
	series map[sid.SeriesId][]segment.Point
	bytes  int64
}

func newMemtable() *memtable {
	return &memtable{series: make(map[sid.SeriesId][]segment.Point)}
}

func (m *memtable) insert(seriesID sid.SeriesId, p segment.Point) {
	m.mu.Lock()
	m.series[seriesID] = append(m.series[seriesID], p)
	m.mu.Unlock()
}

func (m *memtable) Bytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}

// pointSize is sizeof(Point) as the spec's memtable byte accounting unit
// (ts int64 + value float64).
const pointSize = 16

// Engine owns the full storage-engine stack for one data directory.
type Engine struct {
	cfg    Config
	logger log.Logger

	wal      *wal.WAL
	manifest *manifest.Manifest
	tags     *tagindex.Index
	segWrite *segment.Writer
	segRead  *segment.Reader
	queue    *ingestqueue.Queue
	mem      *memtable

	Metrics Metrics

	lastFlush time.Time
	lastSync  time.Time

	stop chan struct{}
	done chan struct{}
}

// Init creates data_dir if needed, opens the WAL, loads the manifest and
// tag index, runs recovery, and spawns the writer thread.
func Init(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	logger := sydralog.For("engine")

	w, err := wal.Open(cfg.DataDir, cfg.FsyncPolicy, logger)
	if err != nil {
		return nil, err
	}

	m, err := manifest.LoadOrInit(cfg.DataDir, logger)
	if err != nil {
		w.Close()
		return nil, err
	}

	tags, err := tagindex.Load(cfg.DataDir)
	if err != nil {
		w.Close()
		m.Close()
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		wal:      w,
		manifest: m,
		tags:     tags,
		segWrite: segment.NewWriter(cfg.DataDir),
		segRead:  segment.NewReader(cfg.DataDir, logger),
		queue:    ingestqueue.New(),
		mem:      newMemtable(),
		lastFlush: time.Now(),
		lastSync:  time.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	if err := e.recover(); err != nil {
		w.Close()
		m.Close()
		return nil, err
	}

	go e.writerLoop()

	return e, nil
}

// Deinit stops the writer thread and releases every owned resource.
func (e *Engine) Deinit() {
	close(e.stop)
	e.queue.Close()
	<-e.done

	if err := e.wal.Close(); err != nil {
		level.Warn(e.logger).Log("msg", "closing wal", "err", err)
	}
	if err := e.manifest.Close(); err != nil {
		level.Warn(e.logger).Log("msg", "closing manifest", "err", err)
	}
}

// Ingest enqueues item and samples the current queue depth into metrics.
func (e *Engine) Ingest(item IngestItem) error {
	err := e.queue.Push(ingestqueue.Item{
		SeriesID: uint64(item.SeriesID),
		Ts:       item.Ts,
		Value:    item.Value,
		TagsJSON: item.TagsJSON,
	})
	e.Metrics.sampleQueueLen(int64(e.queue.Len()))
	return err
}

// QueryRange delegates to the segment reader against the current
// manifest snapshot. Per spec.md §9, the memtable is not scanned unless
// Config.ScanMemtable is set.
func (e *Engine) QueryRange(seriesID sid.SeriesId, startTs, endTs int64, out *[]segment.Point) error {
	entries := e.manifest.Entries()

	segEntries := make([]segment.ManifestEntry, len(entries))
	for i, me := range entries {
		segEntries[i] = segment.ManifestEntry{
			SeriesID: me.SeriesID, HourBucket: me.HourBucket,
			StartTs: me.StartTs, EndTs: me.EndTs, Count: me.Count, Path: me.Path,
		}
	}

	if err := e.segRead.QueryRange(segEntries, seriesID, startTs, endTs, out); err != nil {
		return err
	}

	if e.cfg.ScanMemtable {
		e.mem.mu.Lock()
		for _, p := range e.mem.series[seriesID] {
			if p.Ts >= startTs && p.Ts <= endTs {
				*out = append(*out, p)
			}
		}
		e.mem.mu.Unlock()
	}

	return nil
}

// NoteTags parses tagsJSON and indexes it for seriesID.
func (e *Engine) NoteTags(seriesID sid.SeriesId, tagsJSON string) error {
	return e.tags.NoteTags(seriesID, tagsJSON)
}

// TagIndex exposes the read-only tag lookup used by the query layer's
// future name-based selector resolution (spec.md §9 open question).
func (e *Engine) TagIndex() *tagindex.Index {
	return e.tags
}

func (e *Engine) writerLoop() {
	defer close(e.done)

	for {
		select {
		case <-e.stop:
			e.flushMemtable()
			return
		default:
		}

		item, ok := e.queue.Pop()
		if !ok {
			select {
			case <-e.stop:
				e.flushMemtable()
				return
			case <-time.After(10 * time.Millisecond):
			}
			e.maybeFlushAndSync()
			continue
		}

		e.applyItem(item)
		e.maybeFlushAndSync()
	}
}

func (e *Engine) applyItem(item ingestqueue.Item) {
	n, err := e.wal.Append(item.SeriesID, item.Ts, item.Value)
	if err != nil {
		level.Error(e.logger).Log("msg", "wal append failed", "err", err)
		return
	}
	e.Metrics.WalBytesTotal.Add(n)

	e.mem.insert(sid.SeriesId(item.SeriesID), segment.Point{Ts: item.Ts, Value: item.Value})
	e.mem.mu.Lock()
	e.mem.bytes += pointSize
	e.mem.mu.Unlock()

	e.Metrics.IngestTotal.Add(1)
}

func (e *Engine) maybeFlushAndSync() {
	now := time.Now()

	if e.mem.Bytes() >= e.cfg.MemtableMaxBytes || now.Sub(e.lastFlush).Milliseconds() >= e.cfg.FlushIntervalMs {
		e.flushMemtable()
		e.lastFlush = now
		retention.Apply(e.cfg.DataDir, e.manifest, e.cfg.RetentionDays, now.Unix(), e.logger)
	}

	if e.cfg.FsyncPolicy == wal.FsyncInterval && now.Sub(e.lastSync).Milliseconds() >= e.cfg.FlushIntervalMs {
		if err := e.wal.Sync(); err != nil {
			level.Warn(e.logger).Log("msg", "interval wal fsync failed", "err", err)
		}
		e.lastSync = now
	}
}

// flushMemtable writes out every non-empty series buffer as one or more
// hour-aligned segments, per spec.md §4.5.4.
func (e *Engine) flushMemtable() {
	start := time.Now()

	e.mem.mu.Lock()
	seriesSnapshot := make(map[sid.SeriesId][]segment.Point, len(e.mem.series))
	for id, pts := range e.mem.series {
		if len(pts) == 0 {
			continue
		}
		cp := make([]segment.Point, len(pts))
		copy(cp, pts)
		seriesSnapshot[id] = cp
	}
	e.mem.mu.Unlock()

	var totalPoints int64

	for seriesID, points := range seriesSnapshot {
		sort.Slice(points, func(i, j int) bool { return points[i].Ts < points[j].Ts })

		for _, run := range splitByHourBucket(points) {
			path, err := e.segWrite.WriteSegment(seriesID, hourBucket(run[0].Ts), run)
			if err != nil {
				level.Error(e.logger).Log("msg", "segment write failed", "series_id", seriesID, "err", err)
				continue
			}

			err = e.manifest.Add(manifest.Entry{
				SeriesID:   seriesID,
				HourBucket: hourBucket(run[0].Ts),
				StartTs:    run[0].Ts,
				EndTs:      run[len(run)-1].Ts,
				Count:      uint32(len(run)),
				Path:       path,
			})
			if err != nil {
				level.Error(e.logger).Log("msg", "manifest add failed", "series_id", seriesID, "err", err)
				continue
			}

			totalPoints += int64(len(run))
		}
	}

	e.mem.mu.Lock()
	for id := range seriesSnapshot {
		e.mem.series[id] = e.mem.series[id][:0]
	}
	e.mem.bytes = 0
	e.mem.mu.Unlock()

	if err := e.wal.RotateIfNeeded(time.Now().UnixMilli()); err != nil {
		level.Warn(e.logger).Log("msg", "wal rotate failed", "err", err)
	}

	if err := e.tags.Save(e.cfg.DataDir); err != nil {
		level.Warn(e.logger).Log("msg", "tag snapshot save failed", "err", err)
	}

	e.Metrics.FlushTotal.Add(1)
	e.Metrics.FlushPointsTotal.Add(totalPoints)
	e.Metrics.FlushNanosTotal.Add(time.Since(start).Nanoseconds())
}

func hourBucket(ts int64) int64 {
	return (ts / 3600) * 3600
}

// splitByHourBucket walks sorted points and partitions them into maximal
// runs that share the same hour bucket.
func splitByHourBucket(sorted []segment.Point) [][]segment.Point {
	if len(sorted) == 0 {
		return nil
	}

	var runs [][]segment.Point
	runStart := 0
	currentBucket := hourBucket(sorted[0].Ts)

	for i := 1; i < len(sorted); i++ {
		b := hourBucket(sorted[i].Ts)
		if b != currentBucket {
			runs = append(runs, sorted[runStart:i])
			runStart = i
			currentBucket = b
		}
	}
	runs = append(runs, sorted[runStart:])
	return runs
}
