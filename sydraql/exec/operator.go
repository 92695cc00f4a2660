package exec

import "time"

// StatSnapshot is one operator's timing/row-count contribution, per
// spec.md §4.13's collect_stats.
type StatSnapshot struct {
	Name      string
	ElapsedUs int64
	RowsOut   int64
}

// Operator is the common interface every pipeline stage implements.
// Next is wrapped by base so every concrete operator gets timing/row
// counting for free (spec.md §4.13: "next() is wrapped to time-sample...
// and increment rows_out when a row is produced").
type Operator interface {
	Next() (*Row, error)
	Destroy()
	CollectStats(into []StatSnapshot) []StatSnapshot
}

// base provides the timed-Next wrapper and stats bookkeeping shared by
// every concrete operator. Embed it and implement next() (lowercase) for
// the operator-specific logic; call base.timedNext(o.next) from Next().
type base struct {
	name      string
	elapsedUs int64
	rowsOut   int64
}

func (b *base) timedNext(inner func() (*Row, error)) (*Row, error) {
	start := time.Now()
	row, err := inner()
	b.elapsedUs += time.Since(start).Microseconds()
	if err == nil && row != nil {
		b.rowsOut++
	}
	return row, err
}

func (b *base) collectSelf(into []StatSnapshot) []StatSnapshot {
	return append(into, StatSnapshot{Name: b.name, ElapsedUs: b.elapsedUs, RowsOut: b.rowsOut})
}
