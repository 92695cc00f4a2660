package exec

// fakeOperator replays a fixed row slice, used to feed downstream
// operators under test without going through a real Scan.
type fakeOperator struct {
	rows []*Row
	pos  int
	destroyed bool
}

func newFakeOperator(rows ...*Row) *fakeOperator {
	return &fakeOperator{rows: rows}
}

func (f *fakeOperator) Next() (*Row, error) {
	if f.pos >= len(f.rows) {
		return nil, nil
	}
	r := f.rows[f.pos]
	f.pos++
	return r, nil
}

func (f *fakeOperator) Destroy() { f.destroyed = true }

func (f *fakeOperator) CollectStats(into []StatSnapshot) []StatSnapshot {
	return append(into, StatSnapshot{Name: "Fake"})
}
