package exec

// LimitOperator streams through, discarding the first Offset rows then
// emitting up to Take, per spec.md §4.13. Used only when the limit was
// not collapsed into a preceding Sort's top-k hint.
type LimitOperator struct {
	base
	child  Operator
	offset int64
	take   int64
	skipped int64
	emitted int64
}

func NewLimit(child Operator, offset, take int64) *LimitOperator {
	return &LimitOperator{base: base{name: "Limit"}, child: child, offset: offset, take: take}
}

func (l *LimitOperator) Next() (*Row, error) {
	return l.timedNext(l.next)
}

func (l *LimitOperator) next() (*Row, error) {
	if l.emitted >= l.take {
		return nil, nil
	}

	for l.skipped < l.offset {
		row, err := l.child.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		l.skipped++
	}

	row, err := l.child.Next()
	if err != nil || row == nil {
		return row, err
	}
	l.emitted++
	return row, nil
}

func (l *LimitOperator) Destroy() {
	l.child.Destroy()
}

func (l *LimitOperator) CollectStats(into []StatSnapshot) []StatSnapshot {
	into = l.child.CollectStats(into)
	return l.collectSelf(into)
}
