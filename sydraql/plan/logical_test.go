package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/sydraql/parser"
)

func buildSelect(t *testing.T, src string) Node {
	t.Helper()
	stmt, err := parser.Parse(src)
	require.NoError(t, err)
	require.NotNil(t, stmt.Select)
	return Build(stmt.Select)
}

func TestBuildSimpleSelectYieldsLimitOverProjectOverFilterOverScan(t *testing.T) {
	root := buildSelect(t, `select value from metrics where time > 0 limit 10`)

	limit, ok := root.(*Limit)
	require.True(t, ok)
	require.Equal(t, int64(10), limit.Count)

	project, ok := limit.Child().(*Project)
	require.True(t, ok)

	filter, ok := project.Child().(*Filter)
	require.True(t, ok)
	require.Len(t, filter.Conjuncts, 1)

	_, ok = filter.Child().(*Scan)
	require.True(t, ok)
}

func TestBuildScanDefaultSchemaHasTimeAndValue(t *testing.T) {
	root := buildSelect(t, `select value from metrics where time > 0`)
	project := root.(*Project)
	filter := project.Child().(*Filter)
	scan := filter.Child().(*Scan)

	require.Len(t, scan.Columns, 2)
	require.Equal(t, "time", scan.Columns[0].Name)
	require.Equal(t, "value", scan.Columns[1].Name)
}

func TestBuildGroupByWrapsAggregateWithRollupHint(t *testing.T) {
	root := buildSelect(t, `select avg(value) from metrics where time > 0 group by time_bucket(60, time)`)

	project := root.(*Project)
	agg, ok := project.Child().(*Aggregate)
	require.True(t, ok)
	require.True(t, agg.RollupHint)
}

func TestBuildNoSelectorUsesOneRow(t *testing.T) {
	root := buildSelect(t, `select 1`)
	project := root.(*Project)
	_, ok := project.Child().(*OneRow)
	require.True(t, ok)
}

func TestBuildOrderByWrapsSort(t *testing.T) {
	root := buildSelect(t, `select value from metrics where time > 0 order by time desc`)
	_, ok := root.(*Sort)
	require.True(t, ok)
}

func TestBuildImplicitCallColumnNameUsesFunctionAndCounter(t *testing.T) {
	root := buildSelect(t, `select avg(value), sum(value) from metrics where time > 0 group by time_bucket(60, time)`)
	project := root.(*Project)
	require.Equal(t, "avg_1", project.Projections[0].Name)
	require.Equal(t, "sum_2", project.Projections[1].Name)
}
