// Package validate walks a parsed statement and collects diagnostics
// without aborting, per spec.md §4.8.
package validate

import (
	"fmt"

	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/fn"
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	Code    string
	Message string
}

const (
	CodeTimeRangeRequired = "time_range_required"
	CodeInvalidSyntax     = "invalid_syntax"
)

// Result holds every diagnostic collected while validating a statement.
type Result struct {
	Diagnostics []Diagnostic
}

// IsValid reports whether no diagnostics were collected.
func (r *Result) IsValid() bool {
	return len(r.Diagnostics) == 0
}

// Validate walks stmt and returns every diagnostic found.
func Validate(stmt *ast.Statement, registry *fn.Registry) *Result {
	r := &Result{}

	switch {
	case stmt.Select != nil:
		validateSelect(stmt.Select, registry, r)
	case stmt.Delete != nil:
		validateDelete(stmt.Delete, registry, r)
	case stmt.Explain != nil:
		return Validate(stmt.Explain.Inner, registry)
	case stmt.Insert != nil:
		validateInsert(stmt.Insert, registry, r)
	}

	return r
}

func validateSelect(s *ast.SelectStmt, registry *fn.Registry, r *Result) {
	if s.From != nil && !hasTimeRangePredicate(s.Where) {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{Code: CodeTimeRangeRequired,
			Message: "select with a selector requires a where clause referencing time"})
	}

	for _, proj := range s.Projections {
		checkFunctions(proj.Expr, registry, r)
	}
	checkFunctions(s.Where, registry, r)
	for _, g := range s.GroupBy {
		checkFunctions(g, registry, r)
	}
	if s.Fill != nil && s.Fill.Kind == ast.FillConstant {
		checkFunctions(s.Fill.Constant, registry, r)
	}
	for _, o := range s.OrderBy {
		checkFunctions(o.Expr(), registry, r)
	}
}

func validateDelete(d *ast.DeleteStmt, registry *fn.Registry, r *Result) {
	if !hasTimeRangePredicate(d.Where) {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{Code: CodeTimeRangeRequired,
			Message: "delete requires a where clause referencing time"})
	}
	checkFunctions(d.Where, registry, r)
}

func validateInsert(ins *ast.InsertStmt, registry *fn.Registry, r *Result) {
	for _, v := range ins.Values {
		checkFunctions(v, registry, r)
	}
}

// hasTimeRangePredicate reports whether where contains (anywhere in its
// conjuncts, recursively) an identifier whose trailing segment equals
// "time" case-insensitively, per spec.md §4.8.
func hasTimeRangePredicate(where ast.Expr) bool {
	if where == nil {
		return false
	}
	for _, conjunct := range ast.FlattenAnd(where) {
		if exprReferencesTime(conjunct) {
			return true
		}
	}
	return false
}

func exprReferencesTime(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.IdentifierExpr:
		_, ok := ast.IsTimeIdentifier(v)
		return ok
	case *ast.BinaryExpr:
		return exprReferencesTime(v.Left) || exprReferencesTime(v.Right)
	case *ast.UnaryExpr:
		return exprReferencesTime(v.Operand)
	case *ast.CallExpr:
		for _, arg := range v.Args {
			if exprReferencesTime(arg) {
				return true
			}
		}
	}
	return false
}

// checkFunctions recursively verifies every call's callee resolves in the
// function registry, emitting invalid_syntax for unknown names.
func checkFunctions(e ast.Expr, registry *fn.Registry, r *Result) {
	if e == nil {
		return
	}
	switch v := e.(type) {
	case *ast.CallExpr:
		if !registry.Has(v.Name) {
			r.Diagnostics = append(r.Diagnostics, Diagnostic{Code: CodeInvalidSyntax,
				Message: fmt.Sprintf("unknown function '%s'", v.Name)})
		}
		for _, arg := range v.Args {
			checkFunctions(arg, registry, r)
		}
	case *ast.BinaryExpr:
		checkFunctions(v.Left, registry, r)
		checkFunctions(v.Right, registry, r)
	case *ast.UnaryExpr:
		checkFunctions(v.Operand, registry, r)
	}
}
