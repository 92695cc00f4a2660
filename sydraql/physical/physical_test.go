package physical

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/sydraql/parser"
	"github.com/sydradb/sydradb/sydraql/plan"
)

func buildPhysical(t *testing.T, src string) Node {
	t.Helper()
	stmt, err := parser.Parse(src)
	require.NoError(t, err)
	logical := plan.Build(stmt.Select)
	return Build(logical)
}

func findScan(t *testing.T, n Node) *Scan {
	t.Helper()
	switch v := n.(type) {
	case *Scan:
		return v
	case *OneRow:
		t.Fatal("expected a Scan, found OneRow")
	case *Filter:
		return findScan(t, v.Input)
	case *Aggregate:
		return findScan(t, v.Input)
	case *Project:
		return findScan(t, v.Input)
	case *Sort:
		return findScan(t, v.Input)
	case *Limit:
		return findScan(t, v.Input)
	}
	t.Fatalf("unreachable: %T", n)
	return nil
}

func TestExtractTimeBoundsGreaterThan(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time > 0 limit 10`)
	scan := findScan(t, root)
	require.NotNil(t, scan.TimeBounds.Min)
	require.Equal(t, int64(0), *scan.TimeBounds.Min)
	require.False(t, scan.TimeBounds.MinInclusive)
	require.Nil(t, scan.TimeBounds.Max)
}

func TestExtractTimeBoundsRangeBothSides(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time >= 5 and time <= 10`)
	scan := findScan(t, root)
	require.Equal(t, int64(5), *scan.TimeBounds.Min)
	require.True(t, scan.TimeBounds.MinInclusive)
	require.Equal(t, int64(10), *scan.TimeBounds.Max)
	require.True(t, scan.TimeBounds.MaxInclusive)
}

func TestExtractTimeBoundsSideSwappedLiteral(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where 5 < time`)
	scan := findScan(t, root)
	require.Equal(t, int64(5), *scan.TimeBounds.Min)
	require.False(t, scan.TimeBounds.MinInclusive)
	require.Nil(t, scan.TimeBounds.Max)
}

func TestExtractTimeBoundsEqualitySetsBothBounds(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time = 7`)
	scan := findScan(t, root)
	require.Equal(t, int64(7), *scan.TimeBounds.Min)
	require.True(t, scan.TimeBounds.MinInclusive)
	require.Equal(t, int64(7), *scan.TimeBounds.Max)
	require.True(t, scan.TimeBounds.MaxInclusive)
}

func TestMergeBoundsTightestMinWins(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time > 0 and time > 5`)
	scan := findScan(t, root)
	require.Equal(t, int64(5), *scan.TimeBounds.Min)
	require.False(t, scan.TimeBounds.MinInclusive)
}

func TestMergeBoundsEqualValueTieInclusivityPrefersExclusive(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time >= 5 and time > 5`)
	scan := findScan(t, root)
	require.Equal(t, int64(5), *scan.TimeBounds.Min)
	require.False(t, scan.TimeBounds.MinInclusive, "equal bound values should combine to the stricter exclusive flag")
}

func TestAggregateRequiresHashWhenGrouped(t *testing.T) {
	root := buildPhysical(t, `select avg(value) from metrics where time > 0 group by time_bucket(60, time)`)
	project := root.(*Project)
	agg, ok := project.Input.(*Aggregate)
	require.True(t, ok)
	require.True(t, agg.RequiresHash)
	require.True(t, agg.RollupHint)
	require.False(t, agg.HasFillClause)
}

func TestAggregateHasFillClauseWhenFillPresent(t *testing.T) {
	root := buildPhysical(t,
		`select avg(value) from metrics where time > 0 group by time_bucket(60, time) fill(0)`)
	project := root.(*Project)
	agg := project.Input.(*Aggregate)
	require.True(t, agg.HasFillClause)
}

func TestSortIsAlwaysStable(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time > 0 order by time desc`)
	sort, ok := root.(*Sort)
	require.True(t, ok)
	require.True(t, sort.IsStable)
}

func TestProjectReuseChildSchemaWhenChildIsProject(t *testing.T) {
	// Build() never itself nests Project directly under Project (that
	// shape only arises after the optimizer's projection merge pass), so
	// construct it by hand to exercise lower()'s reuse-schema detection.
	innerLogical := &plan.Project{Input: &plan.OneRow{}}
	outerLogical := &plan.Project{Input: innerLogical}

	outer := lower(outerLogical, TimeBounds{})

	project, ok := outer.(*Project)
	require.True(t, ok)
	require.True(t, project.ReuseChildSchema)
}

func TestLimitNormalizesZeroOffsetWhenAbsent(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time > 0 limit 10`)
	limit, ok := root.(*Limit)
	require.True(t, ok)
	require.Equal(t, int64(10), limit.Count)
	require.Equal(t, int64(0), limit.Offset)
}

func TestLimitCarriesOffset(t *testing.T) {
	root := buildPhysical(t, `select value from metrics where time > 0 limit 10 offset 3`)
	limit := root.(*Limit)
	require.Equal(t, int64(3), limit.Offset)
}
