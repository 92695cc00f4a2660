// Package optimize rewrites a logical plan in place per spec.md §4.11:
// projection pruning/merge, then predicate pushdown.
package optimize

import (
	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/plan"
)

// Optimize runs both passes and returns the (possibly new) plan root.
// Idempotent per spec.md §8 property 7: a second call on an already
// optimized tree is a structural no-op.
func Optimize(root plan.Node) plan.Node {
	root = mergeProjections(root)
	root = pushdownPredicates(root, nil)
	return root
}

// mergeProjections folds Project-over-Project and Project-over-Aggregate
// per spec.md §4.11 pass 1.
func mergeProjections(n plan.Node) plan.Node {
	if n == nil {
		return nil
	}

	switch v := n.(type) {
	case *plan.Project:
		child := mergeProjections(v.Input)

		if inner, ok := child.(*plan.Project); ok {
			resolved := resolveColumns(v.Projections, inner.Projections)
			if columnsEqualSchema(resolved, inner.Projections) {
				return inner
			}
			inner.Projections = resolved
			return inner
		}

		if agg, ok := child.(*plan.Aggregate); ok {
			agg.Projections = resolveColumns(v.Projections, agg.Projections)
			return agg
		}

		v.Input = child
		return v

	case *plan.Filter:
		v.Input = mergeProjections(v.Input)
		return v
	case *plan.Aggregate:
		v.Input = mergeProjections(v.Input)
		return v
	case *plan.Sort:
		v.Input = mergeProjections(v.Input)
		return v
	case *plan.Limit:
		v.Input = mergeProjections(v.Input)
		return v
	default:
		return n
	}
}

// resolveColumns rewrites outer columns that are bare references to one
// of child's output columns into the child's underlying expression,
// leaving computed outer expressions (that aren't themselves a plain
// reference to a child column) as-is.
func resolveColumns(outer []plan.Column, child []plan.Column) []plan.Column {
	byName := make(map[string]ast.Expr, len(child))
	for _, c := range child {
		byName[lowerName(c.Name)] = c.Expr
	}

	resolved := make([]plan.Column, len(outer))
	for i, c := range outer {
		if ident, ok := c.Expr.(*ast.IdentifierExpr); ok {
			if underlying, found := byName[lowerName(ident.Ident.Value)]; found {
				resolved[i] = plan.Column{Name: c.Name, Expr: underlying}
				continue
			}
		}
		resolved[i] = c
	}
	return resolved
}

func columnsEqualSchema(a, b []plan.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !ast.Equal(a[i].Expr, b[i].Expr) {
			return false
		}
	}
	return true
}

func lowerName(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// pushdownPredicates recursively swaps a Filter above Project/Sort/Limit
// with its child, merges stacked Filters, and splits conjuncts above an
// Aggregate with groupings into a pushed-down set and a kept-above set,
// per spec.md §4.11 pass 2.
func pushdownPredicates(n plan.Node, _ []plan.Column) plan.Node {
	if n == nil {
		return nil
	}

	f, ok := n.(*plan.Filter)
	if !ok {
		switch v := n.(type) {
		case *plan.Project:
			v.Input = pushdownPredicates(v.Input, nil)
		case *plan.Aggregate:
			v.Input = pushdownPredicates(v.Input, nil)
		case *plan.Sort:
			v.Input = pushdownPredicates(v.Input, nil)
		case *plan.Limit:
			v.Input = pushdownPredicates(v.Input, nil)
		}
		return n
	}

	f.Input = pushdownPredicates(f.Input, nil)

	switch child := f.Input.(type) {
	case *plan.Filter:
		merged := append(append([]ast.Expr{}, f.Conjuncts...), child.Conjuncts...)
		child.Conjuncts = merged
		return pushdownPredicates(child, nil)

	case *plan.Project:
		f.Input = child.Input
		child.Input = f
		return child

	case *plan.Sort:
		f.Input = child.Input
		child.Input = f
		return child

	case *plan.Limit:
		f.Input = child.Input
		child.Input = f
		return child

	case *plan.Aggregate:
		if len(child.Groupings) == 0 {
			return f
		}
		pushable, kept := splitConjuncts(f.Conjuncts, child.Groupings, child.Projections)
		if len(pushable) == 0 {
			return f
		}
		child.Input = &plan.Filter{Input: child.Input, Conjuncts: pushable}
		if len(kept) == 0 {
			return child
		}
		f.Conjuncts = kept
		f.Input = child
		return f

	default:
		return f
	}
}

// splitConjuncts divides conjuncts into those expressible purely over
// grouping keys (or a projection alias/computed expression that
// structurally equals a grouping expression) versus the rest.
func splitConjuncts(conjuncts []ast.Expr, groupings []ast.Expr, projections []plan.Column) (pushable, kept []ast.Expr) {
	for _, c := range conjuncts {
		if exprIsOverGroupingKeys(c, groupings, projections) {
			pushable = append(pushable, c)
		} else {
			kept = append(kept, c)
		}
	}
	return pushable, kept
}

func exprIsOverGroupingKeys(e ast.Expr, groupings []ast.Expr, projections []plan.Column) bool {
	switch v := e.(type) {
	case *ast.BinaryExpr:
		return exprIsOverGroupingKeys(v.Left, groupings, projections) &&
			exprIsOverGroupingKeys(v.Right, groupings, projections)
	case *ast.UnaryExpr:
		return exprIsOverGroupingKeys(v.Operand, groupings, projections)
	case *ast.Literal:
		return true
	default:
		return matchesGroupingKey(e, groupings, projections)
	}
}

func matchesGroupingKey(e ast.Expr, groupings []ast.Expr, projections []plan.Column) bool {
	for _, g := range groupings {
		if ast.Equal(e, g) {
			return true
		}
	}
	if ident, ok := e.(*ast.IdentifierExpr); ok {
		for _, p := range projections {
			if lowerName(p.Name) == lowerName(ident.Ident.Value) {
				for _, g := range groupings {
					if ast.Equal(p.Expr, g) {
						return true
					}
				}
			}
		}
	}
	return false
}
