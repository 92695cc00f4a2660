// Package physical lowers a logical plan into physical nodes, propagating
// a TimeBounds context, per spec.md §4.12.
package physical

import (
	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/plan"
)

// TimeBounds is the merged time-window context threaded top-down through
// physical lowering.
type TimeBounds struct {
	Min          *int64
	MinInclusive bool
	Max          *int64
	MaxInclusive bool
}

// Node is any physical plan operator.
type Node interface {
	Schema() []plan.Column
	physicalNode()
}

// Scan is the physical leaf: records the merged time bounds context.
type Scan struct {
	Selector   *ast.Selector
	Columns    []plan.Column
	TimeBounds TimeBounds
}

func (s *Scan) Schema() []plan.Column { return s.Columns }
func (*Scan) physicalNode()           {}

// OneRow is the physical selector-less leaf.
type OneRow struct{}

func (o *OneRow) Schema() []plan.Column { return nil }
func (*OneRow) physicalNode()           {}

// Filter records in TimeBounds only the bounds extracted from its own
// conjuncts; its child is lowered with those merged into the incoming
// context.
type Filter struct {
	Input      Node
	Conjuncts  []ast.Expr
	TimeBounds TimeBounds
}

func (f *Filter) Schema() []plan.Column { return f.Input.Schema() }
func (*Filter) physicalNode()           {}

// Aggregate is the physical lowering of plan.Aggregate.
type Aggregate struct {
	Input         Node
	Groupings     []ast.Expr
	Projections   []plan.Column
	Fill          *ast.FillClause
	RollupHint    bool
	RequiresHash  bool
	HasFillClause bool
}

func (a *Aggregate) Schema() []plan.Column { return a.Projections }
func (*Aggregate) physicalNode()           {}

// Project carries reuse_child_schema per spec.md §4.12.
type Project struct {
	Input             Node
	Projections       []plan.Column
	ReuseChildSchema  bool
}

func (p *Project) Schema() []plan.Column { return p.Projections }
func (*Project) physicalNode()           {}

// Sort is always marked stable.
type Sort struct {
	Input     Node
	Orderings []ast.Ordering
	IsStable  bool
}

func (s *Sort) Schema() []plan.Column { return s.Input.Schema() }
func (*Sort) physicalNode()           {}

// Limit stores a normalized offset.
type Limit struct {
	Input  Node
	Count  int64
	Offset int64
}

func (l *Limit) Schema() []plan.Column { return l.Input.Schema() }
func (*Limit) physicalNode()           {}

// Build lowers a logical plan root into a physical plan root.
func Build(root plan.Node) Node {
	return lower(root, TimeBounds{})
}

func lower(n plan.Node, ctx TimeBounds) Node {
	switch v := n.(type) {
	case *plan.Scan:
		return &Scan{Selector: v.Selector, Columns: v.Columns, TimeBounds: ctx}

	case *plan.OneRow:
		return &OneRow{}

	case *plan.Filter:
		extracted, _ := extractTimeBounds(v.Conjuncts)
		merged := mergeBounds(ctx, extracted)
		child := lower(v.Input, merged)
		return &Filter{Input: child, Conjuncts: v.Conjuncts, TimeBounds: extracted}

	case *plan.Aggregate:
		child := lower(v.Input, ctx)
		return &Aggregate{
			Input: child, Groupings: v.Groupings, Projections: v.Projections, Fill: v.Fill,
			RollupHint: v.RollupHint, RequiresHash: len(v.Groupings) != 0, HasFillClause: v.Fill != nil,
		}

	case *plan.Project:
		child := lower(v.Input, ctx)
		_, childIsProject := child.(*Project)
		return &Project{Input: child, Projections: v.Projections, ReuseChildSchema: childIsProject}

	case *plan.Sort:
		child := lower(v.Input, ctx)
		return &Sort{Input: child, Orderings: v.Orderings, IsStable: true}

	case *plan.Limit:
		child := lower(v.Input, ctx)
		return &Limit{Input: child, Count: v.Count, Offset: v.Offset}

	default:
		return nil
	}
}

// extractTimeBounds scans conjuncts for `time <op> <int literal>`
// comparisons (side-swapped forms included), merging all found bounds
// with "tightest wins" semantics, per spec.md §4.12.
func extractTimeBounds(conjuncts []ast.Expr) (TimeBounds, []ast.Expr) {
	var bounds TimeBounds
	var rest []ast.Expr

	for _, c := range conjuncts {
		b, ok := conjunctAsTimeBound(c)
		if !ok {
			rest = append(rest, c)
			continue
		}
		bounds = mergeBounds(bounds, b)
	}

	return bounds, rest
}

func conjunctAsTimeBound(e ast.Expr) (TimeBounds, bool) {
	b, ok := e.(*ast.BinaryExpr)
	if !ok {
		return TimeBounds{}, false
	}
	if !isComparisonOp(b.Op) {
		return TimeBounds{}, false
	}

	op := b.Op
	leftIsTime := ast.ExactTimeIdentifier(b.Left)
	rightIsTime := ast.ExactTimeIdentifier(b.Right)

	var lit *ast.Literal
	switch {
	case leftIsTime:
		l, ok := b.Right.(*ast.Literal)
		if !ok || l.IsFloat || l.IsString || l.IsBool || l.IsNull {
			return TimeBounds{}, false
		}
		lit = l
	case rightIsTime:
		l, ok := b.Left.(*ast.Literal)
		if !ok || l.IsFloat || l.IsString || l.IsBool || l.IsNull {
			return TimeBounds{}, false
		}
		lit = l
		op = flipOp(op)
	default:
		return TimeBounds{}, false
	}

	value := lit.IntValue
	switch op {
	case ast.OpGte:
		return TimeBounds{Min: &value, MinInclusive: true}, true
	case ast.OpGt:
		return TimeBounds{Min: &value, MinInclusive: false}, true
	case ast.OpLte:
		return TimeBounds{Max: &value, MaxInclusive: true}, true
	case ast.OpLt:
		return TimeBounds{Max: &value, MaxInclusive: false}, true
	case ast.OpEq:
		return TimeBounds{Min: &value, MinInclusive: true, Max: &value, MaxInclusive: true}, true
	default:
		return TimeBounds{}, false
	}
}

func isComparisonOp(op ast.BinaryOp) bool {
	switch op {
	case ast.OpGte, ast.OpGt, ast.OpLte, ast.OpLt, ast.OpEq:
		return true
	default:
		return false
	}
}

// flipOp reverses a comparison's direction when its operands are swapped
// (literal on the left).
func flipOp(op ast.BinaryOp) ast.BinaryOp {
	switch op {
	case ast.OpGte:
		return ast.OpLte
	case ast.OpGt:
		return ast.OpLt
	case ast.OpLte:
		return ast.OpGte
	case ast.OpLt:
		return ast.OpGt
	default:
		return op
	}
}

// mergeBounds combines two TimeBounds with "tightest wins": higher min
// replaces lower, lower max replaces higher, inclusivity combines to the
// stricter (exclusive wins a tie).
func mergeBounds(a, b TimeBounds) TimeBounds {
	out := a

	if b.Min != nil {
		switch {
		case out.Min == nil:
			out.Min = b.Min
			out.MinInclusive = b.MinInclusive
		case *b.Min > *out.Min:
			out.Min = b.Min
			out.MinInclusive = b.MinInclusive
		case *b.Min == *out.Min:
			out.MinInclusive = out.MinInclusive && b.MinInclusive
		}
	}

	if b.Max != nil {
		switch {
		case out.Max == nil:
			out.Max = b.Max
			out.MaxInclusive = b.MaxInclusive
		case *b.Max < *out.Max:
			out.Max = b.Max
			out.MaxInclusive = b.MaxInclusive
		case *b.Max == *out.Max:
			out.MaxInclusive = out.MaxInclusive && b.MaxInclusive
		}
	}

	return out
}
