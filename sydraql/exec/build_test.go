package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/physical"
)

func TestBuildPipelineCollapsesLimitOverSortIntoSortWithHint(t *testing.T) {
	node := &physical.Limit{
		Count:  5,
		Offset: 1,
		Input: &physical.Sort{
			Orderings: []ast.Ordering{ast.NewOrdering(ident("value"), false)},
			Input:     &physical.OneRow{},
		},
	}

	op, err := BuildPipeline(node, &fakeRanger{})
	require.NoError(t, err)

	sortOp, ok := op.(*SortOperator)
	require.True(t, ok, "Limit-over-Sort must collapse into a bare SortOperator, not a separate LimitOperator")
	require.NotNil(t, sortOp.hint)
	require.Equal(t, int64(1), sortOp.hint.Offset)
	require.Equal(t, int64(5), sortOp.hint.Take)
}

func TestBuildPipelineLimitWithoutSortChildBuildsLimitOperator(t *testing.T) {
	node := &physical.Limit{Count: 5, Offset: 0, Input: &physical.OneRow{}}

	op, err := BuildPipeline(node, &fakeRanger{})
	require.NoError(t, err)
	_, ok := op.(*LimitOperator)
	require.True(t, ok)
}

func TestBuildPipelineSortWithoutParentLimitHasNilHint(t *testing.T) {
	node := &physical.Sort{Input: &physical.OneRow{}}
	op, err := BuildPipeline(node, &fakeRanger{})
	require.NoError(t, err)
	sortOp := op.(*SortOperator)
	require.Nil(t, sortOp.hint)
}

func TestBuildPipelineUnrecognizedNodeErrors(t *testing.T) {
	_, err := BuildPipeline(nil, &fakeRanger{})
	require.Error(t, err)
}
