// Package ast defines sydraQL's abstract syntax tree per spec.md §4.7 and
// the structural-expression-equality helper shared by the optimizer and
// the aggregate operator per spec.md §9. Nodes are plain Go values rather
// than an arena of indices: the query-scoped arena mandated by §9 is
// realized here as "everything for one query lives under one *Statement,
// freed together when the cursor releases it" — the same single-owner
// discipline the teacher's friggdb block pool uses for one block's
// buffers, just without a literal bump allocator.
package ast

import "strings"

// Statement is the root of a parsed query: exactly one of Select, Insert,
// Delete, or Explain is non-nil.
type Statement struct {
	Select  *SelectStmt
	Insert  *InsertStmt
	Delete  *DeleteStmt
	Explain *ExplainStmt
}

// SelectStmt is `select <projections> [from <selector>] [where <expr>]
// [group by <exprs>] [fill(...)] [order by <orderings>] [limit n [offset m]]`.
type SelectStmt struct {
	Projections []Projection
	From        *Selector
	Where       Expr
	GroupBy     []Expr
	Fill        *FillClause
	OrderBy     []Ordering
	Limit       *LimitClause
}

// InsertStmt is `insert into <ident> [(cols)] values (exprs)`.
type InsertStmt struct {
	Into    *Identifier
	Columns []*Identifier
	Values  []Expr
}

// DeleteStmt is `delete from <selector> [where <expr>]`.
type DeleteStmt struct {
	From  *Selector
	Where Expr
}

// ExplainStmt wraps an inner statement: `explain <statement>`.
type ExplainStmt struct {
	Inner *Statement
}

// Projection is one `select` output column: an expression plus its name.
// Name resolution is performed by the parser per spec.md §4.7 (explicit
// alias > identifier value > implicit), so by the time this node exists
// Alias is always populated.
type Projection struct {
	Expr  Expr
	Alias string
}

// Ordering is one `order by` term.
type Ordering struct {
	expr descOrAsc
}

// descOrAsc avoids exporting a raw bool for direction; kept unexported,
// accessed through Desc/Expr below.
type descOrAsc struct {
	expr Expr
	desc bool
}

// NewOrdering builds an Ordering.
func NewOrdering(expr Expr, desc bool) Ordering {
	return Ordering{expr: descOrAsc{expr: expr, desc: desc}}
}

func (o Ordering) Expr() Expr { return o.expr.expr }
func (o Ordering) Desc() bool { return o.expr.desc }

// LimitClause is `limit <n> [offset <m>]`.
type LimitClause struct {
	Count  int64
	Offset *int64
}

// FillKind enumerates the fill() strategies.
type FillKind int

const (
	FillPrevious FillKind = iota
	FillLinear
	FillNull
	FillConstant
)

// FillClause is `fill(previous|linear|null|<constant expr>)`.
type FillClause struct {
	Kind     FillKind
	Constant Expr // only set when Kind == FillConstant
}

// SelectorKind distinguishes `by_id(n)` from a bare name selector.
type SelectorKind int

const (
	SelectorByID SelectorKind = iota
	SelectorName
)

// Selector is the `from` target: `by_id(<int>)` or a bare identifier name.
type Selector struct {
	Kind SelectorKind
	ID   uint64      // set when Kind == SelectorByID
	Name *Identifier // set when Kind == SelectorName
}

// Identifier is a dotted identifier path: `(ident|quoted) ('.' (ident|quoted))*`.
// Value spans all segments verbatim from the source; Quoted is true if any
// segment was quoted.
type Identifier struct {
	Value  string
	Quoted bool
}

// Trailing returns the segment after the last '.', or the whole value if
// there is no '.'. Used by the validator (time-range check) and the
// evaluator (column resolution by trailing segment).
func (id *Identifier) Trailing() string {
	if idx := strings.LastIndexByte(id.Value, '.'); idx >= 0 {
		return id.Value[idx+1:]
	}
	return id.Value
}

// Expr is any sydraQL expression node.
type Expr interface {
	exprNode()
}

// Literal is a number/string/true/false/null constant.
type Literal struct {
	IsNull    bool
	IsBool    bool
	BoolValue bool
	IsFloat   bool
	IntValue  int64
	FloatVal  float64
	StringVal string
	IsString  bool
}

func (*Literal) exprNode() {}

// IdentifierExpr wraps an Identifier so it satisfies Expr.
type IdentifierExpr struct {
	Ident *Identifier
}

func (*IdentifierExpr) exprNode() {}

// BinaryOp enumerates binary operators, spelled canonically.
type BinaryOp string

const (
	OpOr    BinaryOp = "||"
	OpAnd   BinaryOp = "&&"
	OpEq    BinaryOp = "="
	OpNeq   BinaryOp = "!="
	OpMatch BinaryOp = "=~"
	OpNMatch BinaryOp = "!~"
	OpLt    BinaryOp = "<"
	OpLte   BinaryOp = "<="
	OpGt    BinaryOp = ">"
	OpGte   BinaryOp = ">="
	OpAdd   BinaryOp = "+"
	OpSub   BinaryOp = "-"
	OpMul   BinaryOp = "*"
	OpDiv   BinaryOp = "/"
	OpMod   BinaryOp = "%"
	OpPow   BinaryOp = "^"
)

// BinaryExpr is `left op right`.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryOp enumerates unary prefix operators.
type UnaryOp string

const (
	UnaryNeg UnaryOp = "-"
	UnaryPos UnaryOp = "+"
	UnaryNot UnaryOp = "!"
)

// UnaryExpr is `op operand`.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
}

func (*UnaryExpr) exprNode() {}

// CallExpr is `name(args...)`.
type CallExpr struct {
	Name string
	Args []Expr
}

func (*CallExpr) exprNode() {}

// FlattenAnd walks a (possibly nested) tree of `&&` BinaryExprs and
// returns the leaf conjuncts in left-to-right order. A non-AND expr
// returns a single-element list containing itself. Grounded on spec.md
// §4.10's "flatten the top-level WHERE predicate along logical_and".
func FlattenAnd(e Expr) []Expr {
	if e == nil {
		return nil
	}
	if b, ok := e.(*BinaryExpr); ok && b.Op == OpAnd {
		return append(FlattenAnd(b.Left), FlattenAnd(b.Right)...)
	}
	return []Expr{e}
}

// RebuildAnd is FlattenAnd's inverse: folds conjuncts into a single
// right-associated `&&` tree, or nil for an empty list, or the lone expr
// for a single-element list.
func RebuildAnd(conjuncts []Expr) Expr {
	if len(conjuncts) == 0 {
		return nil
	}
	result := conjuncts[len(conjuncts)-1]
	for i := len(conjuncts) - 2; i >= 0; i-- {
		result = &BinaryExpr{Op: OpAnd, Left: conjuncts[i], Right: result}
	}
	return result
}

// Equal reports structural equality per spec.md §9: case-insensitive for
// identifier values and function names, exact for literal payloads,
// recursive on call args / binary operands / unary operand. Must stay the
// single shared implementation used by the optimizer, the planner's
// rollup-hint/grouping-key matching, and the aggregate operator's group
// key comparison.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case *Literal:
		bv, ok := b.(*Literal)
		return ok && literalEqual(av, bv)
	case *IdentifierExpr:
		bv, ok := b.(*IdentifierExpr)
		return ok && strings.EqualFold(av.Ident.Value, bv.Ident.Value)
	case *BinaryExpr:
		bv, ok := b.(*BinaryExpr)
		return ok && av.Op == bv.Op && Equal(av.Left, bv.Left) && Equal(av.Right, bv.Right)
	case *UnaryExpr:
		bv, ok := b.(*UnaryExpr)
		return ok && av.Op == bv.Op && Equal(av.Operand, bv.Operand)
	case *CallExpr:
		bv, ok := b.(*CallExpr)
		if !ok || !strings.EqualFold(av.Name, bv.Name) || len(av.Args) != len(bv.Args) {
			return false
		}
		for i := range av.Args {
			if !Equal(av.Args[i], bv.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func literalEqual(a, b *Literal) bool {
	if a.IsNull || b.IsNull {
		return a.IsNull && b.IsNull
	}
	if a.IsBool || b.IsBool {
		return a.IsBool && b.IsBool && a.BoolValue == b.BoolValue
	}
	if a.IsString || b.IsString {
		return a.IsString && b.IsString && a.StringVal == b.StringVal
	}
	if a.IsFloat || b.IsFloat {
		return a.IsFloat == b.IsFloat && a.FloatVal == b.FloatVal
	}
	return a.IntValue == b.IntValue
}

// IsTimeBucketCall reports whether e is a call to time_bucket (any args),
// used by the logical planner's rollup_hint detection (spec.md §4.10).
func IsTimeBucketCall(e Expr) bool {
	c, ok := e.(*CallExpr)
	return ok && strings.EqualFold(c.Name, "time_bucket")
}

// IsTimeIdentifier reports whether e is an identifier whose trailing
// segment equals "time" case-insensitively, dotted paths included (so
// tag.time matches). This is the validator's time_range_required check
// (spec.md §4.8); spec.md §4.12 excludes dotted identifiers from the
// time-bounds extraction, so that path uses a stricter check. The stricter
// exact-match variant used by the physical planner is ExactTimeIdentifier.
func IsTimeIdentifier(e Expr) (*Identifier, bool) {
	ie, ok := e.(*IdentifierExpr)
	if !ok {
		return nil, false
	}
	return ie.Ident, strings.EqualFold(ie.Ident.Trailing(), "time")
}

// ExactTimeIdentifier reports whether e is an identifier named exactly
// "time" (case-insensitive, no dots at all) — the stricter form spec.md
// §4.12 requires for time-bounds extraction.
func ExactTimeIdentifier(e Expr) bool {
	ie, ok := e.(*IdentifierExpr)
	if !ok {
		return false
	}
	return strings.EqualFold(ie.Ident.Value, "time") && !strings.Contains(ie.Ident.Value, ".")
}
