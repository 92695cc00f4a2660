package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/sydraql/ast"
)

func valueRow(schemaName string, v Value) *Row {
	return &Row{Schema: []ColumnInfo{{Name: schemaName}}, Values: []Value{v}}
}

func TestFilterPassesMatchingRowsOnly(t *testing.T) {
	child := newFakeOperator(valueRow("value", FloatValue(1)), valueRow("value", FloatValue(5)))
	conjuncts := []ast.Expr{&ast.BinaryExpr{Op: ast.OpGt, Left: ident("value"), Right: intLit(2)}}
	f := NewFilter(child, conjuncts)

	row, err := f.Next()
	require.NoError(t, err)
	require.Equal(t, 5.0, row.Values[0].Float)

	row, err = f.Next()
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestFilterSurfacesErrorFromNullComparison(t *testing.T) {
	child := newFakeOperator(valueRow("value", NullValue()))
	conjuncts := []ast.Expr{&ast.BinaryExpr{Op: ast.OpGt, Left: ident("value"), Right: intLit(0)}}
	// comparison on null errors (AsFloat fails for null), and an erroring
	// conjunct should surface the error rather than silently dropping the row.
	f := NewFilter(child, conjuncts)
	_, err := f.Next()
	require.Error(t, err)
}

func TestFilterDestroyPropagatesToChild(t *testing.T) {
	child := newFakeOperator()
	f := NewFilter(child, nil)
	f.Destroy()
	require.True(t, child.destroyed)
}
