// Package plan builds a logical plan tree from a parsed statement, per
// spec.md §4.10.
package plan

import (
	"strconv"

	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/fn"
)

// Column describes one output slot of a plan node.
type Column struct {
	Name string
	Expr ast.Expr
}

// Node is any logical plan operator.
type Node interface {
	Schema() []Column
	Child() Node
	planNode()
}

// Scan is the leaf: reads points for a series selector. Schema defaults
// to {time, value} per spec.md §4.10, even when the query doesn't
// project them; neither the optimizer nor physical lowering narrows it.
type Scan struct {
	Selector *ast.Selector
	Columns  []Column
}

func (s *Scan) Schema() []Column { return s.Columns }
func (s *Scan) Child() Node      { return nil }
func (*Scan) planNode()          {}

// OneRow is the selector-less leaf for `select <const>`.
type OneRow struct{}

func (o *OneRow) Schema() []Column { return nil }
func (o *OneRow) Child() Node      { return nil }
func (*OneRow) planNode()          {}

// Filter holds a flattened conjunct list (spec.md §4.10/§4.11).
type Filter struct {
	Input     Node
	Conjuncts []ast.Expr
}

func (f *Filter) Schema() []Column { return f.Input.Schema() }
func (f *Filter) Child() Node      { return f.Input }
func (*Filter) planNode()          {}

// Aggregate wraps grouped/windowed projections.
type Aggregate struct {
	Input       Node
	Groupings   []ast.Expr
	Projections []Column
	Fill        *ast.FillClause
	RollupHint  bool
}

func (a *Aggregate) Schema() []Column { return a.Projections }
func (a *Aggregate) Child() Node      { return a.Input }
func (*Aggregate) planNode()          {}

// Project evaluates output columns against its input.
type Project struct {
	Input       Node
	Projections []Column
}

func (p *Project) Schema() []Column { return p.Projections }
func (p *Project) Child() Node      { return p.Input }
func (*Project) planNode()          {}

// Sort orders rows by the given key expressions.
type Sort struct {
	Input    Node
	Orderings []ast.Ordering
}

func (s *Sort) Schema() []Column { return s.Input.Schema() }
func (s *Sort) Child() Node      { return s.Input }
func (*Sort) planNode()          {}

// Limit truncates the row stream.
type Limit struct {
	Input  Node
	Count  int64
	Offset int64
}

func (l *Limit) Schema() []Column { return l.Input.Schema() }
func (l *Limit) Child() Node      { return l.Input }
func (*Limit) planNode()          {}

// counter hands out the global suffix used for synthesized column names,
// shared across a single Build call (spec.md §4.10: "<fn_name>_<global
// counter>" / "_col<global_counter>").
type counter struct{ n int }

func (c *counter) next() int {
	c.n++
	return c.n
}

// Build lowers a select statement into a logical plan tree.
func Build(stmt *ast.SelectStmt) Node {
	c := &counter{}

	var root Node
	if stmt.From != nil {
		root = &Scan{Selector: stmt.From, Columns: defaultScanSchema()}
	} else {
		root = &OneRow{}
	}

	if stmt.Where != nil {
		root = &Filter{Input: root, Conjuncts: ast.FlattenAnd(stmt.Where)}
	}

	needsAggregate := len(stmt.GroupBy) > 0 || projectionsHaveAggregateOrWindow(stmt.Projections)
	if needsAggregate {
		rollup := false
		for _, g := range stmt.GroupBy {
			if ast.IsTimeBucketCall(g) {
				rollup = true
				break
			}
		}
		root = &Aggregate{
			Input:       root,
			Groupings:   stmt.GroupBy,
			Projections: buildColumns(stmt.Projections, c),
			Fill:        stmt.Fill,
			RollupHint:  rollup,
		}
	}

	root = &Project{Input: root, Projections: buildColumns(stmt.Projections, c)}

	if len(stmt.OrderBy) > 0 {
		root = &Sort{Input: root, Orderings: stmt.OrderBy}
	}

	if stmt.Limit != nil {
		offset := int64(0)
		if stmt.Limit.Offset != nil {
			offset = *stmt.Limit.Offset
		}
		root = &Limit{Input: root, Count: stmt.Limit.Count, Offset: offset}
	}

	return root
}

func defaultScanSchema() []Column {
	return []Column{
		{Name: "time", Expr: &ast.IdentifierExpr{Ident: &ast.Identifier{Value: "time"}}},
		{Name: "value", Expr: &ast.IdentifierExpr{Ident: &ast.Identifier{Value: "value"}}},
	}
}

func buildColumns(projections []ast.Projection, c *counter) []Column {
	cols := make([]Column, len(projections))
	for i, p := range projections {
		name := p.Alias
		if name == "" {
			name = columnName(p.Expr, c)
		}
		cols[i] = Column{Name: name, Expr: p.Expr}
	}
	return cols
}

// columnName applies spec.md §4.10's fallback naming rule for the case
// where the parser did not already assign an alias (e.g. a hand-built
// statement), following the same rule as the parser's implicit alias.
func columnName(e ast.Expr, c *counter) string {
	switch v := e.(type) {
	case *ast.IdentifierExpr:
		return v.Ident.Value
	case *ast.CallExpr:
		return v.Name + "_" + strconv.Itoa(c.next())
	default:
		return "_col" + strconv.Itoa(c.next())
	}
}

func projectionsHaveAggregateOrWindow(projections []ast.Projection) bool {
	for _, p := range projections {
		if exprHasAggregateOrWindow(p.Expr) {
			return true
		}
	}
	return false
}

func exprHasAggregateOrWindow(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.CallExpr:
		if isAggregateOrWindowName(v.Name) {
			return true
		}
		for _, arg := range v.Args {
			if exprHasAggregateOrWindow(arg) {
				return true
			}
		}
	case *ast.BinaryExpr:
		return exprHasAggregateOrWindow(v.Left) || exprHasAggregateOrWindow(v.Right)
	case *ast.UnaryExpr:
		return exprHasAggregateOrWindow(v.Operand)
	}
	return false
}

// isAggregateOrWindowName consults the shared function registry so the
// planner's aggregate-wrapping decision never drifts from the registry's
// own notion of which functions are aggregate/window kinds.
func isAggregateOrWindowName(name string) bool {
	sig, ok := fn.Default.Lookup(name)
	if !ok {
		return false
	}
	return sig.Kind == fn.KindAggregate || sig.Kind == fn.KindWindow
}
