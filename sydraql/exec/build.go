package exec

import (
	"github.com/sydradb/sydradb/internal/sydraerr"
	"github.com/sydradb/sydradb/sydraql/physical"
)

// BuildPipeline lowers a physical plan tree into an operator tree,
// applying the Sort/Limit top-k collapse described in spec.md §4.13: a
// Limit whose direct child is a Sort is not materialized as its own
// operator — instead the Sort operator is built with a LimitHint.
func BuildPipeline(node physical.Node, engine QueryRanger) (Operator, error) {
	if lim, ok := node.(*physical.Limit); ok {
		if sortNode, ok := lim.Input.(*physical.Sort); ok {
			child, err := BuildPipeline(sortNode.Input, engine)
			if err != nil {
				return nil, err
			}
			return NewSort(child, sortNode.Orderings, &LimitHint{Offset: lim.Offset, Take: lim.Count}), nil
		}

		child, err := BuildPipeline(lim.Input, engine)
		if err != nil {
			return nil, err
		}
		return NewLimit(child, lim.Offset, lim.Count), nil
	}

	switch v := node.(type) {
	case *physical.Scan:
		return NewScan(v, engine)

	case *physical.OneRow:
		return NewOneRow(), nil

	case *physical.Filter:
		child, err := BuildPipeline(v.Input, engine)
		if err != nil {
			return nil, err
		}
		return NewFilter(child, v.Conjuncts), nil

	case *physical.Aggregate:
		child, err := BuildPipeline(v.Input, engine)
		if err != nil {
			return nil, err
		}
		return NewAggregate(v, child)

	case *physical.Project:
		child, err := BuildPipeline(v.Input, engine)
		if err != nil {
			return nil, err
		}
		return NewProject(v, child), nil

	case *physical.Sort:
		child, err := BuildPipeline(v.Input, engine)
		if err != nil {
			return nil, err
		}
		return NewSort(child, v.Orderings, nil), nil

	default:
		return nil, sydraerr.Wrap(sydraerr.Protocol, ErrUnsupportedPlan, "unrecognized physical node")
	}
}
