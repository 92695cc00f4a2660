package exec

import (
	"sort"

	"github.com/sydradb/sydradb/sydraql/ast"
)

// LimitHint carries a collapsed parent Limit's offset/take into the Sort
// operator for the top-k optimization in spec.md §4.13.
type LimitHint struct {
	Offset int64
	Take   int64
}

type ownedRow struct {
	schema []ColumnInfo
	values []Value
	keys   []Value
	desc   []bool
}

// SortOperator materializes all child rows, sorts them by the ordering
// expressions, and (with a LimitHint) keeps only the top offset+take rows
// while scanning instead of sorting the full input, per spec.md §4.13.
type SortOperator struct {
	base
	child     Operator
	orderings []ast.Ordering
	hint      *LimitHint

	sorted []*ownedRow
	pos    int
}

func NewSort(child Operator, orderings []ast.Ordering, hint *LimitHint) *SortOperator {
	return &SortOperator{base: base{name: "Sort"}, child: child, orderings: orderings, hint: hint}
}

func (s *SortOperator) Next() (*Row, error) {
	return s.timedNext(s.next)
}

func (s *SortOperator) next() (*Row, error) {
	if s.sorted == nil {
		if err := s.materialize(); err != nil {
			return nil, err
		}
	}

	if s.pos >= len(s.sorted) {
		return nil, nil
	}
	r := s.sorted[s.pos]
	s.pos++
	return &Row{Schema: r.schema, Values: r.values}, nil
}

func (s *SortOperator) materialize() error {
	var cap64 int64 = -1
	if s.hint != nil {
		cap64 = s.hint.Offset + s.hint.Take
	}

	var rows []*ownedRow
	for {
		row, err := s.child.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}

		owned, err := s.own(row)
		if err != nil {
			return err
		}

		if cap64 < 0 || int64(len(rows)) < cap64 {
			rows = append(rows, owned)
			continue
		}

		worstIdx := worstRowIndex(rows)
		if less(owned, rows[worstIdx]) {
			rows[worstIdx] = owned
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })

	if s.hint != nil {
		offset := int(s.hint.Offset)
		if offset > len(rows) {
			offset = len(rows)
		}
		rows = rows[offset:]
		if int64(len(rows)) > s.hint.Take {
			rows = rows[:s.hint.Take]
		}
	}

	s.sorted = rows
	return nil
}

func (s *SortOperator) own(row *Row) (*ownedRow, error) {
	values := make([]Value, len(row.Values))
	copy(values, row.Values)

	resolver := rowResolver{row: row}
	keys := make([]Value, len(s.orderings))
	desc := make([]bool, len(s.orderings))
	for i, o := range s.orderings {
		v, err := Evaluate(o.Expr(), resolver)
		if err != nil {
			return nil, err
		}
		keys[i] = v
		desc[i] = o.Desc()
	}

	return &ownedRow{schema: row.Schema, values: values, keys: keys, desc: desc}, nil
}

// worstRowIndex finds the index of the currently-worst-ordered row among
// the retained top-k set (the one a strictly-better incoming row would
// evict).
func worstRowIndex(rows []*ownedRow) int {
	worst := 0
	for i := 1; i < len(rows); i++ {
		if less(rows[worst], rows[i]) {
			worst = i
		}
	}
	return worst
}

// less orders a before b per spec.md §4.13: NULLs first, numerics as f64,
// strings lexicographic, DESC inverts the final per-key comparison.
func less(a, b *ownedRow) bool {
	for i := range a.keys {
		cmp := compareValues(a.keys[i], b.keys[i])
		if cmp == 0 {
			continue
		}
		if a.desc[i] {
			cmp = -cmp
		}
		return cmp < 0
	}
	return false
}

func compareValues(a, b Value) int {
	if a.IsNull() || b.IsNull() {
		switch {
		case a.IsNull() && b.IsNull():
			return 0
		case a.IsNull():
			return -1
		default:
			return 1
		}
	}

	if a.Kind == ValueString || b.Kind == ValueString {
		as, bs := a.Str, b.Str
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}

	af, _ := a.AsFloat()
	bf, _ := b.AsFloat()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func (s *SortOperator) Destroy() {
	s.child.Destroy()
}

func (s *SortOperator) CollectStats(into []StatSnapshot) []StatSnapshot {
	into = s.child.CollectStats(into)
	return s.collectSelf(into)
}
