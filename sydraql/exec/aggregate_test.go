package exec

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/physical"
	"github.com/sydradb/sydradb/sydraql/plan"
)

func groupValueRow(g int64, v float64) *Row {
	return &Row{
		Schema: []ColumnInfo{{Name: "g"}, {Name: "value"}},
		Values: []Value{IntValue(g), FloatValue(v)},
	}
}

func avgAggregateNode() *physical.Aggregate {
	return &physical.Aggregate{
		Groupings: []ast.Expr{ident("g")},
		Projections: []plan.Column{
			{Name: "g", Expr: ident("g")},
			{Name: "avg_value", Expr: &ast.CallExpr{Name: "avg", Args: []ast.Expr{ident("value")}}},
		},
	}
}

func TestAggregateGroupsByKeyAndAverages(t *testing.T) {
	child := newFakeOperator(groupValueRow(1, 10), groupValueRow(1, 20), groupValueRow(2, 5))
	op, err := NewAggregate(avgAggregateNode(), child)
	require.NoError(t, err)

	got := map[int64]float64{}
	for {
		row, err := op.Next()
		require.NoError(t, err)
		if row == nil {
			break
		}
		got[row.Values[0].Int] = row.Values[1].Float
	}

	require.Equal(t, 15.0, got[1])
	require.Equal(t, 5.0, got[2])
}

func TestAggregateCountWithNoArgsCountsAllRows(t *testing.T) {
	node := &physical.Aggregate{
		Projections: []plan.Column{
			{Name: "n", Expr: &ast.CallExpr{Name: "count"}},
		},
	}
	child := newFakeOperator(groupValueRow(1, 10), groupValueRow(1, 20))
	op, err := NewAggregate(node, child)
	require.NoError(t, err)

	row, err := op.Next()
	require.NoError(t, err)
	require.Equal(t, int64(2), row.Values[0].Int)
}

func TestAggregateSumSkipsNulls(t *testing.T) {
	node := &physical.Aggregate{
		Projections: []plan.Column{
			{Name: "s", Expr: &ast.CallExpr{Name: "sum", Args: []ast.Expr{ident("value")}}},
		},
	}
	child := newFakeOperator(
		&Row{Schema: []ColumnInfo{{Name: "value"}}, Values: []Value{FloatValue(3)}},
		&Row{Schema: []ColumnInfo{{Name: "value"}}, Values: []Value{NullValue()}},
	)
	op, err := NewAggregate(node, child)
	require.NoError(t, err)

	row, err := op.Next()
	require.NoError(t, err)
	require.Equal(t, 3.0, row.Values[0].Float)
}

func TestAggregateRejectsUnsupportedOutputColumn(t *testing.T) {
	node := &physical.Aggregate{
		Projections: []plan.Column{
			{Name: "m", Expr: &ast.CallExpr{Name: "min", Args: []ast.Expr{ident("value")}}},
		},
	}
	_, err := NewAggregate(node, newFakeOperator())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupportedAggregate))
}

func TestAggregateOutputColumnMatchingGroupingExpressionPasses(t *testing.T) {
	node := &physical.Aggregate{
		Groupings:   []ast.Expr{ident("g")},
		Projections: []plan.Column{{Name: "g", Expr: ident("g")}},
	}
	_, err := NewAggregate(node, newFakeOperator())
	require.NoError(t, err)
}
