package exec

import (
	"strings"

	"github.com/sydradb/sydradb/internal/sydraerr"
	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/physical"
	"github.com/sydradb/sydradb/sydraql/plan"
)

// aggState accumulates one aggregate column's running value for one group.
type aggState struct {
	kind  string // "avg", "sum", "count", or "" for a bare grouping passthrough
	total float64
	count int64
}

type group struct {
	key   []Value
	state []aggState
}

// AggregateOperator materializes all groups on its first Next() call by
// draining its child, then emits one row per group, per spec.md §4.13.
type AggregateOperator struct {
	base
	child       Operator
	groupings   []ast.Expr
	projections []plan.Column
	schema      []ColumnInfo
	buf         []Value

	groups      []*group
	materialized bool
	emitPos     int
}

func NewAggregate(node *physical.Aggregate, child Operator) (*AggregateOperator, error) {
	for _, col := range node.Projections {
		if err := validateAggregateColumn(col.Expr, node.Groupings); err != nil {
			return nil, err
		}
	}

	schema := make([]ColumnInfo, len(node.Projections))
	for i, c := range node.Projections {
		schema[i] = ColumnInfo{Name: c.Name}
	}

	return &AggregateOperator{
		base:        base{name: "Aggregate"},
		child:       child,
		groupings:   node.Groupings,
		projections: node.Projections,
		schema:      schema,
		buf:         make([]Value, len(node.Projections)),
	}, nil
}

// validateAggregateColumn enforces spec.md §4.13: an output column must
// be exactly a grouping expression (structural match) or a call to avg,
// sum, or count.
func validateAggregateColumn(e ast.Expr, groupings []ast.Expr) error {
	for _, g := range groupings {
		if ast.Equal(e, g) {
			return nil
		}
	}
	if call, ok := e.(*ast.CallExpr); ok {
		switch strings.ToLower(call.Name) {
		case "avg", "sum", "count":
			return nil
		}
	}
	return sydraerr.Wrap(sydraerr.Protocol, ErrUnsupportedAggregate, "aggregate output column must be a grouping key or avg/sum/count call")
}

func (a *AggregateOperator) Next() (*Row, error) {
	return a.timedNext(a.next)
}

func (a *AggregateOperator) next() (*Row, error) {
	if !a.materialized {
		if err := a.materialize(); err != nil {
			return nil, err
		}
		a.materialized = true
	}

	if a.emitPos >= len(a.groups) {
		return nil, nil
	}
	g := a.groups[a.emitPos]
	a.emitPos++

	for i, col := range a.projections {
		a.buf[i] = a.finalValue(col.Expr, g, i)
	}

	return &Row{Schema: a.schema, Values: a.buf}, nil
}

func (a *AggregateOperator) finalValue(colExpr ast.Expr, g *group, col int) Value {
	for gi, ge := range a.groupings {
		if ast.Equal(colExpr, ge) {
			return g.key[gi]
		}
	}

	st := g.state[col]
	switch st.kind {
	case "avg":
		if st.count == 0 {
			return NullValue()
		}
		return FloatValue(st.total / float64(st.count))
	case "sum":
		return FloatValue(st.total)
	case "count":
		return IntValue(st.count)
	default:
		return NullValue()
	}
}

func (a *AggregateOperator) materialize() error {
	// state layout mirrors a.projections 1:1; a grouping-passthrough
	// column's state is left zero-valued and ignored by finalValue.
	kinds := make([]string, len(a.projections))
	for i, col := range a.projections {
		isGroupKey := false
		for _, ge := range a.groupings {
			if ast.Equal(col.Expr, ge) {
				isGroupKey = true
				break
			}
		}
		if isGroupKey {
			continue
		}
		if call, ok := col.Expr.(*ast.CallExpr); ok {
			kinds[i] = strings.ToLower(call.Name)
		}
	}

	for {
		row, err := a.child.Next()
		if err != nil {
			return err
		}
		if row == nil {
			break
		}

		resolver := rowResolver{row: row}
		key := make([]Value, len(a.groupings))
		for i, ge := range a.groupings {
			v, err := Evaluate(ge, resolver)
			if err != nil {
				return err
			}
			key[i] = v
		}

		g := a.findOrInsertGroup(key)
		for i, col := range a.projections {
			if kinds[i] == "" {
				continue
			}
			if err := a.updateState(&g.state[i], kinds[i], col.Expr.(*ast.CallExpr), resolver); err != nil {
				return err
			}
		}
	}

	return nil
}

func (a *AggregateOperator) findOrInsertGroup(key []Value) *group {
	for _, g := range a.groups {
		if groupKeyEquals(g.key, key) {
			return g
		}
	}
	g := &group{key: key, state: make([]aggState, len(a.projections))}
	for i, col := range a.projections {
		if call, ok := col.Expr.(*ast.CallExpr); ok {
			g.state[i].kind = strings.ToLower(call.Name)
		}
	}
	a.groups = append(a.groups, g)
	return g
}

func groupKeyEquals(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

func (a *AggregateOperator) updateState(st *aggState, kind string, call *ast.CallExpr, resolver Resolver) error {
	switch kind {
	case "count":
		if len(call.Args) == 0 {
			st.count++
			return nil
		}
		v, err := Evaluate(call.Args[0], resolver)
		if err != nil {
			return err
		}
		if !v.IsNull() {
			st.count++
		}
		return nil

	case "avg", "sum":
		if len(call.Args) != 1 {
			return sydraerr.Wrap(sydraerr.Protocol, ErrUnsupportedAggregate, kind+" takes exactly one argument")
		}
		v, err := Evaluate(call.Args[0], resolver)
		if err != nil {
			return err
		}
		if v.IsNull() {
			return nil
		}
		f, ok := v.AsFloat()
		if !ok {
			return sydraerr.Wrap(sydraerr.Runtime, ErrTypeMismatch, kind+" on non-numeric value")
		}
		st.total += f
		st.count++
		return nil

	default:
		return nil
	}
}

func (a *AggregateOperator) Destroy() {
	a.child.Destroy()
}

func (a *AggregateOperator) CollectStats(into []StatSnapshot) []StatSnapshot {
	into = a.child.CollectStats(into)
	return a.collectSelf(into)
}
