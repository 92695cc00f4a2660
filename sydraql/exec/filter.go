package exec

import (
	"github.com/sydradb/sydradb/sydraql/ast"
)

// FilterOperator loops child.Next() until every conjunct evaluates
// truthy, passing the child's row through without copying, per spec.md
// §4.13.
type FilterOperator struct {
	base
	child     Operator
	conjuncts []ast.Expr
}

func NewFilter(child Operator, conjuncts []ast.Expr) *FilterOperator {
	return &FilterOperator{base: base{name: "Filter"}, child: child, conjuncts: conjuncts}
}

func (f *FilterOperator) Next() (*Row, error) {
	return f.timedNext(f.next)
}

func (f *FilterOperator) next() (*Row, error) {
	for {
		row, err := f.child.Next()
		if err != nil || row == nil {
			return row, err
		}

		ok, err := f.matches(row)
		if err != nil {
			return nil, err
		}
		if ok {
			return row, nil
		}
	}
}

func (f *FilterOperator) matches(row *Row) (bool, error) {
	resolver := rowResolver{row: row}
	for _, c := range f.conjuncts {
		v, err := Evaluate(c, resolver)
		if err != nil {
			return false, err
		}
		if v.IsNull() || !truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

func (f *FilterOperator) Destroy() {
	f.child.Destroy()
}

func (f *FilterOperator) CollectStats(into []StatSnapshot) []StatSnapshot {
	into = f.child.CollectStats(into)
	return f.collectSelf(into)
}
