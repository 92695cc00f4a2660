package exec

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/segment"
)

func TestExecuteTimeBoundsAndLimitScenario(t *testing.T) {
	ranger := &fakeRanger{points: []segment.Point{{Ts: 1, Value: 1}, {Ts: 2, Value: 2}}}

	cursor, err := Execute(ranger, `select value from by_id(1) where time > 0 limit 10`)
	require.NoError(t, err)
	defer cursor.Deinit()

	require.Equal(t, int64(0), ranger.gotFrom)

	var rows []*Row
	for {
		row, err := cursor.Next()
		require.NoError(t, err)
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
	require.NotEmpty(t, cursor.Stats.TraceID)
	require.Len(t, cursor.Stats.TraceID, 16)
	require.Equal(t, int64(2), cursor.Stats.RowsScanned)
}

func TestExecuteGroupedAggregateScenario(t *testing.T) {
	ranger := &fakeRanger{points: []segment.Point{{Ts: 0, Value: 1}, {Ts: 60, Value: 3}, {Ts: 120, Value: 5}}}

	cursor, err := Execute(ranger,
		`select avg(value) from by_id(1) where time >= 0 group by time_bucket(60, time)`)
	require.NoError(t, err)
	defer cursor.Deinit()

	var averages []float64
	for {
		row, err := cursor.Next()
		require.NoError(t, err)
		if row == nil {
			break
		}
		averages = append(averages, row.Values[0].Float)
	}
	require.Len(t, averages, 3)
	require.ElementsMatch(t, []float64{1, 3, 5}, averages)
}

func TestExecuteMissingTimeRangeReturnsValidationFailed(t *testing.T) {
	_, err := Execute(&fakeRanger{}, `select value from metrics`)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidate))
	require.Contains(t, err.Error(), "time_range_required")
}

func TestExecuteUnknownFunctionReturnsValidationFailed(t *testing.T) {
	_, err := Execute(&fakeRanger{}, `select foo(value) from metrics where time > 0`)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidate))
	require.Contains(t, err.Error(), "invalid_syntax")
	require.Contains(t, err.Error(), "unknown function 'foo'")
}

func TestExecuteParseErrorWraps(t *testing.T) {
	_, err := Execute(&fakeRanger{}, `select from where`)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrParse))
}

func TestCursorCollectOperatorStatsIsDepthFirst(t *testing.T) {
	ranger := &fakeRanger{points: []segment.Point{{Ts: 1, Value: 1}}}
	cursor, err := Execute(ranger, `select value from by_id(1) where time > 0`)
	require.NoError(t, err)
	defer cursor.Deinit()

	_, _ = cursor.Next()
	stats := cursor.CollectOperatorStats()
	require.NotEmpty(t, stats)
	require.Equal(t, "Scan", stats[0].Name)
}
