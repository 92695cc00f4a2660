package exec

import (
	"math"
	"strings"

	"github.com/sydradb/sydradb/internal/sid"
	"github.com/sydradb/sydradb/internal/sydraerr"
	"github.com/sydradb/sydradb/segment"
	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/physical"
)

// QueryRanger is the engine collaborator a Scan operator reads through.
// Satisfied by *engine.Engine without an import-cycle-risking dependency
// on the engine package's concrete type.
type QueryRanger interface {
	QueryRange(seriesID sid.SeriesId, startTs, endTs int64, out *[]segment.Point) error
}

// ScanOperator reads points for one series id and maps them to rows per
// the physical Scan's output schema, per spec.md §4.13.
type ScanOperator struct {
	base
	schema []ColumnInfo
	points []segment.Point
	pos    int
	buf    []Value
	// colIsTime[i] is true when schema column i maps to the point's ts,
	// false when it maps to the point's value (the only two legal shapes).
	colIsTime []bool
}

// NewScan builds a ScanOperator, rejecting a name-based selector and any
// output column that isn't a bare `time`/`value` identifier per spec.md
// §4.13.
func NewScan(node *physical.Scan, engine QueryRanger) (*ScanOperator, error) {
	if node.Selector.Kind != ast.SelectorByID {
		return nil, sydraerr.Wrap(sydraerr.Protocol, ErrUnsupportedPlan, "scan selector must be by_id")
	}

	colIsTime := make([]bool, len(node.Columns))
	schema := make([]ColumnInfo, len(node.Columns))
	for i, col := range node.Columns {
		ident, ok := col.Expr.(*ast.IdentifierExpr)
		if !ok {
			return nil, sydraerr.Wrap(sydraerr.Protocol, ErrUnsupportedPlan, "scan column must be an identifier")
		}
		switch strings.ToLower(ident.Ident.Value) {
		case "time":
			colIsTime[i] = true
		case "value":
			colIsTime[i] = false
		default:
			return nil, sydraerr.Wrap(sydraerr.Protocol, ErrUnsupportedPlan, "scan column must be 'time' or 'value'")
		}
		schema[i] = ColumnInfo{Name: col.Name}
	}

	startTs := int64(math.MinInt64)
	if node.TimeBounds.Min != nil {
		startTs = *node.TimeBounds.Min
	}
	endTs := int64(math.MaxInt64)
	if node.TimeBounds.Max != nil {
		endTs = *node.TimeBounds.Max
	}

	var points []segment.Point
	if err := engine.QueryRange(sid.SeriesId(node.Selector.ID), startTs, endTs, &points); err != nil {
		return nil, sydraerr.Wrap(sydraerr.Runtime, ErrQueryRange, "scan query_range failed")
	}

	return &ScanOperator{
		base:      base{name: "Scan"},
		schema:    schema,
		points:    points,
		colIsTime: colIsTime,
		buf:       make([]Value, len(schema)),
	}, nil
}

func (s *ScanOperator) Next() (*Row, error) {
	return s.timedNext(s.next)
}

func (s *ScanOperator) next() (*Row, error) {
	if s.pos >= len(s.points) {
		return nil, nil
	}
	p := s.points[s.pos]
	s.pos++

	for i, isTime := range s.colIsTime {
		if isTime {
			s.buf[i] = IntValue(p.Ts)
		} else {
			s.buf[i] = FloatValue(p.Value)
		}
	}

	return &Row{Schema: s.schema, Values: s.buf}, nil
}

func (s *ScanOperator) Destroy() {}

func (s *ScanOperator) CollectStats(into []StatSnapshot) []StatSnapshot {
	return s.collectSelf(into)
}
