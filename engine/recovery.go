package engine

import (
	"github.com/sydradb/sydradb/internal/sid"
	"github.com/sydradb/sydradb/segment"
)

// recover replays the WAL against the manifest's high-water marks, per
// spec.md §4.5.5: build highwater[series] = max(manifest.end_ts), skip
// any replayed point at or before it, insert the rest into the memtable,
// and flush once if anything was recovered so it becomes a durable
// segment before normal operation resumes.
func (e *Engine) recover() error {
	highwater := make(map[sid.SeriesId]int64)
	for _, entry := range e.manifest.Entries() {
		cur, ok := highwater[entry.SeriesID]
		if !ok || entry.EndTs > cur {
			highwater[entry.SeriesID] = entry.EndTs
		}
	}

	ctx := &recoveryContext{engine: e, highwater: highwater}
	if err := e.wal.Replay(ctx); err != nil {
		return err
	}

	if ctx.inserted {
		e.flushMemtable()
	}

	return nil
}

type recoveryContext struct {
	engine    *Engine
	highwater map[sid.SeriesId]int64
	inserted  bool
}

func (c *recoveryContext) OnRecord(seriesID uint64, ts int64, value float64) {
	id := sid.SeriesId(seriesID)

	if hw, ok := c.highwater[id]; ok && ts <= hw {
		return
	}

	c.engine.mem.insert(id, segment.Point{Ts: ts, Value: value})
	c.engine.mem.mu.Lock()
	c.engine.mem.bytes += pointSize
	c.engine.mem.mu.Unlock()

	if ts > c.highwater[id] {
		c.highwater[id] = ts
	}
	c.inserted = true
}
