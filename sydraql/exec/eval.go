package exec

import (
	"math"
	"strings"

	"github.com/sydradb/sydradb/internal/sydraerr"
	"github.com/sydradb/sydradb/sydraql/ast"
)

// Resolver maps a row-context identifier lookup to a Value. The standard
// implementation resolves against a *Row (rowResolver below); Aggregate
// and other operators that evaluate expressions against synthesized
// state supply their own.
type Resolver interface {
	Resolve(name string) (Value, bool)
}

// rowResolver resolves identifiers against a Row's schema/values.
type rowResolver struct{ row *Row }

func (r rowResolver) Resolve(name string) (Value, bool) {
	return resolveColumn(r.row, name)
}

// Evaluate implements spec.md §4.14: literals direct, identifiers via
// resolver, unary (not / unary +/-), binary (arithmetic/comparison/
// equality/short-circuit logical), and the two scalar calls supported at
// evaluation time (abs, time_bucket).
func Evaluate(expr ast.Expr, resolver Resolver) (Value, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return evalLiteral(e), nil

	case *ast.IdentifierExpr:
		v, ok := resolver.Resolve(e.Ident.Value)
		if !ok {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrUnsupportedExpression,
				"unresolved identifier '"+e.Ident.Value+"'")
		}
		return v, nil

	case *ast.UnaryExpr:
		return evalUnary(e, resolver)

	case *ast.BinaryExpr:
		return evalBinary(e, resolver)

	case *ast.CallExpr:
		return evalCall(e, resolver)

	default:
		return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrUnsupportedExpression, "unhandled expression node")
	}
}

func evalLiteral(l *ast.Literal) Value {
	switch {
	case l.IsNull:
		return NullValue()
	case l.IsBool:
		return BoolValue(l.BoolValue)
	case l.IsString:
		return StringValue(l.StringVal)
	case l.IsFloat:
		return FloatValue(l.FloatVal)
	default:
		return IntValue(l.IntValue)
	}
}

func evalUnary(e *ast.UnaryExpr, resolver Resolver) (Value, error) {
	operand, err := Evaluate(e.Operand, resolver)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case ast.UnaryNot:
		if operand.IsNull() {
			return NullValue(), nil
		}
		return BoolValue(!truthy(operand)), nil
	case ast.UnaryNeg:
		f, ok := operand.AsFloat()
		if !ok {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrTypeMismatch, "unary '-' on non-numeric value")
		}
		if operand.Kind == ValueInteger {
			return IntValue(-operand.Int), nil
		}
		return FloatValue(-f), nil
	case ast.UnaryPos:
		return operand, nil
	default:
		return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrUnsupportedExpression, "unhandled unary operator")
	}
}

func truthy(v Value) bool {
	switch v.Kind {
	case ValueBoolean:
		return v.Bool
	default:
		f, ok := v.AsFloat()
		return ok && f != 0
	}
}

func evalBinary(e *ast.BinaryExpr, resolver Resolver) (Value, error) {
	// Logical operators short-circuit per spec.md §4.14.
	switch e.Op {
	case ast.OpAnd:
		left, err := Evaluate(e.Left, resolver)
		if err != nil {
			return Value{}, err
		}
		if !left.IsNull() && !truthy(left) {
			return BoolValue(false), nil
		}
		right, err := Evaluate(e.Right, resolver)
		if err != nil {
			return Value{}, err
		}
		if left.IsNull() || right.IsNull() {
			return NullValue(), nil
		}
		return BoolValue(truthy(left) && truthy(right)), nil

	case ast.OpOr:
		left, err := Evaluate(e.Left, resolver)
		if err != nil {
			return Value{}, err
		}
		if !left.IsNull() && truthy(left) {
			return BoolValue(true), nil
		}
		right, err := Evaluate(e.Right, resolver)
		if err != nil {
			return Value{}, err
		}
		if left.IsNull() || right.IsNull() {
			return NullValue(), nil
		}
		return BoolValue(truthy(left) || truthy(right)), nil
	}

	left, err := Evaluate(e.Left, resolver)
	if err != nil {
		return Value{}, err
	}
	right, err := Evaluate(e.Right, resolver)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case ast.OpEq:
		return BoolValue(left.Equals(right)), nil
	case ast.OpNeq:
		return BoolValue(!left.Equals(right)), nil
	case ast.OpMatch, ast.OpNMatch:
		// Regex-style match operators are reserved for tag predicates,
		// which flow through the tag index rather than row evaluation;
		// row-level evaluation falls back to string equality semantics.
		matched := left.Kind == ValueString && right.Kind == ValueString && left.Str == right.Str
		if e.Op == ast.OpNMatch {
			matched = !matched
		}
		return BoolValue(matched), nil

	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		lf, lok := left.AsFloat()
		rf, rok := right.AsFloat()
		if !lok || !rok {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrTypeMismatch, "comparison on non-numeric value")
		}
		switch e.Op {
		case ast.OpLt:
			return BoolValue(lf < rf), nil
		case ast.OpLte:
			return BoolValue(lf <= rf), nil
		case ast.OpGt:
			return BoolValue(lf > rf), nil
		default:
			return BoolValue(lf >= rf), nil
		}

	case ast.OpMod:
		li, lok := left.AsInt()
		ri, rok := right.AsInt()
		if !lok || !rok {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrTypeMismatch, "'%' on non-numeric value")
		}
		if ri == 0 {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrDivisionByZero, "modulo by zero")
		}
		return IntValue(li % ri), nil

	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpPow:
		lf, lok := left.AsFloat()
		rf, rok := right.AsFloat()
		if !lok || !rok {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrTypeMismatch, "arithmetic on non-numeric value")
		}
		switch e.Op {
		case ast.OpAdd:
			return FloatValue(lf + rf), nil
		case ast.OpSub:
			return FloatValue(lf - rf), nil
		case ast.OpMul:
			return FloatValue(lf * rf), nil
		case ast.OpDiv:
			if rf == 0 {
				return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrDivisionByZero, "division by zero")
			}
			return FloatValue(lf / rf), nil
		default:
			return FloatValue(math.Pow(lf, rf)), nil
		}

	default:
		return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrUnsupportedExpression, "unhandled binary operator")
	}
}

func evalCall(e *ast.CallExpr, resolver Resolver) (Value, error) {
	switch strings.ToLower(e.Name) {
	case "abs":
		if len(e.Args) != 1 {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrUnsupportedExpression, "abs takes exactly one argument")
		}
		v, err := Evaluate(e.Args[0], resolver)
		if err != nil {
			return Value{}, err
		}
		f, ok := v.AsFloat()
		if !ok {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrTypeMismatch, "abs on non-numeric value")
		}
		return FloatValue(math.Abs(f)), nil

	case "time_bucket":
		if len(e.Args) != 2 {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrUnsupportedExpression, "time_bucket takes exactly two arguments")
		}
		bucketV, err := Evaluate(e.Args[0], resolver)
		if err != nil {
			return Value{}, err
		}
		tsV, err := Evaluate(e.Args[1], resolver)
		if err != nil {
			return Value{}, err
		}
		bucket, ok1 := bucketV.AsFloat()
		ts, ok2 := tsV.AsFloat()
		if !ok1 || !ok2 {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrTypeMismatch, "time_bucket on non-numeric value")
		}
		if bucket == 0 {
			return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrDivisionByZero, "time_bucket size is zero")
		}
		return IntValue(int64(math.Floor(ts/bucket) * bucket)), nil

	default:
		return Value{}, sydraerr.Wrap(sydraerr.Runtime, ErrUnsupportedExpression, "unsupported call '"+e.Name+"' at evaluation time")
	}
}
