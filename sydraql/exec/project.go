package exec

import (
	"github.com/sydradb/sydradb/sydraql/physical"
	"github.com/sydradb/sydradb/sydraql/plan"
)

// ProjectOperator evaluates each output column expression against a row
// context. Per spec.md §4.13, construction may elide itself (returning
// the child operator directly) when the physical node says the schema
// reuse is safe.
type ProjectOperator struct {
	base
	child   Operator
	columns []plan.Column
	schema  []ColumnInfo
	buf     []Value
}

// NewProject builds a ProjectOperator, or returns the child verbatim
// when node.ReuseChildSchema is set.
func NewProject(node *physical.Project, child Operator) Operator {
	if node.ReuseChildSchema {
		return child
	}

	schema := make([]ColumnInfo, len(node.Projections))
	for i, c := range node.Projections {
		schema[i] = ColumnInfo{Name: c.Name}
	}

	return &ProjectOperator{
		base:    base{name: "Project"},
		child:   child,
		columns: node.Projections,
		schema:  schema,
		buf:     make([]Value, len(node.Projections)),
	}
}

func (p *ProjectOperator) Next() (*Row, error) {
	return p.timedNext(p.next)
}

func (p *ProjectOperator) next() (*Row, error) {
	row, err := p.child.Next()
	if err != nil || row == nil {
		return row, err
	}

	resolver := rowResolver{row: row}
	for i, c := range p.columns {
		v, err := Evaluate(c.Expr, resolver)
		if err != nil {
			return nil, err
		}
		p.buf[i] = v
	}

	return &Row{Schema: p.schema, Values: p.buf}, nil
}

func (p *ProjectOperator) Destroy() {
	p.child.Destroy()
}

func (p *ProjectOperator) CollectStats(into []StatSnapshot) []StatSnapshot {
	into = p.child.CollectStats(into)
	return p.collectSelf(into)
}
