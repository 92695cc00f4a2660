package exec

import (
	"crypto/rand"
	"time"

	"github.com/sydradb/sydradb/internal/sydraerr"
	"github.com/sydradb/sydradb/sydraql/ast"
	"github.com/sydradb/sydradb/sydraql/fn"
	"github.com/sydradb/sydradb/sydraql/optimize"
	"github.com/sydradb/sydradb/sydraql/parser"
	"github.com/sydradb/sydradb/sydraql/physical"
	"github.com/sydradb/sydradb/sydraql/plan"
	"github.com/sydradb/sydradb/sydraql/validate"
)

const traceIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// Arena marks the single owner of everything allocated while executing
// one query. sydraQL's AST/plan nodes are plain Go values reachable only
// from the cursor (spec.md §9: "arena + borrowed references with a
// single owner — the cursor"), so Arena itself carries no storage; it
// exists as the named handle Deinit releases.
type Arena struct{}

// ExecutionStats is the per-stage timing plus row counters recorded by
// execute(), per spec.md §4.15.
type ExecutionStats struct {
	ParseUs     int64
	ValidateUs  int64
	OptimizeUs  int64
	PhysicalUs  int64
	PipelineUs  int64
	TraceID     string
	RowsEmitted int64
	RowsScanned int64
}

// ExecutionCursor owns the arena, the built operator tree, and the root's
// output schema, per spec.md §4.15.
type ExecutionCursor struct {
	arena    *Arena
	operator Operator
	columns  []ColumnInfo
	Stats    ExecutionStats
}

// Execute runs the full pipeline: lex -> parse -> validate -> build ->
// optimize -> physical -> pipeline construction, per spec.md §4.15.
// engine is the QueryRanger a Scan operator reads through.
func Execute(engine QueryRanger, queryText string) (*ExecutionCursor, error) {
	parseStart := time.Now()
	stmt, err := parser.Parse(queryText)
	parseUs := time.Since(parseStart).Microseconds()
	if err != nil {
		return nil, sydraerr.Wrap(sydraerr.Protocol, ErrParse, "parsing query")
	}

	validateStart := time.Now()
	result := validate.Validate(stmt, fn.Default)
	validateUs := time.Since(validateStart).Microseconds()
	if !result.IsValid() {
		return nil, sydraerr.Wrap(sydraerr.Protocol, ErrValidate, "validation failed: "+firstDiagnostic(result))
	}

	selectStmt, err := unwrapSelect(stmt)
	if err != nil {
		return nil, err
	}

	optimizeStart := time.Now()
	logical := plan.Build(selectStmt)
	logical = optimize.Optimize(logical)
	optimizeUs := time.Since(optimizeStart).Microseconds()

	physicalStart := time.Now()
	physicalRoot := physical.Build(logical)
	physicalUs := time.Since(physicalStart).Microseconds()

	pipelineStart := time.Now()
	op, err := BuildPipeline(physicalRoot, engine)
	pipelineUs := time.Since(pipelineStart).Microseconds()
	if err != nil {
		return nil, err
	}

	traceID, err := generateTraceID()
	if err != nil {
		return nil, sydraerr.Wrap(sydraerr.Runtime, ErrOutOfMemory, "generating trace id")
	}

	schema := make([]ColumnInfo, len(physicalRoot.Schema()))
	for i, c := range physicalRoot.Schema() {
		schema[i] = ColumnInfo{Name: c.Name}
	}

	return &ExecutionCursor{
		arena:    &Arena{},
		operator: op,
		columns:  schema,
		Stats: ExecutionStats{
			ParseUs:    parseUs,
			ValidateUs: validateUs,
			OptimizeUs: optimizeUs,
			PhysicalUs: physicalUs,
			PipelineUs: pipelineUs,
			TraceID:    traceID,
		},
	}, nil
}

func firstDiagnostic(r *validate.Result) string {
	if len(r.Diagnostics) == 0 {
		return ""
	}
	return r.Diagnostics[0].Code + ": " + r.Diagnostics[0].Message
}

// unwrapSelect supports only select statements through the executor for
// now; insert/delete/explain are parsed and validated but have no
// physical lowering defined by spec.md §4.10-§4.13.
func unwrapSelect(stmt *ast.Statement) (*ast.SelectStmt, error) {
	if stmt.Explain != nil {
		return unwrapSelect(stmt.Explain.Inner)
	}
	if stmt.Select == nil {
		return nil, sydraerr.Wrap(sydraerr.Protocol, ErrBuild, "only select statements have a query plan")
	}
	return stmt.Select, nil
}

// generateTraceID draws 16 crypto-random bytes and maps each to the
// base-32-like alphabet in spec.md §4.15.
func generateTraceID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	id := make([]byte, 16)
	for i, b := range raw {
		id[i] = traceIDAlphabet[int(b)%len(traceIDAlphabet)]
	}
	return string(id), nil
}

// Next drives the root operator.
func (c *ExecutionCursor) Next() (*Row, error) {
	row, err := c.operator.Next()
	if err != nil {
		return nil, err
	}
	if row != nil {
		c.Stats.RowsEmitted++
	}
	c.refreshRowsScanned()
	return row, nil
}

// refreshRowsScanned pulls the Scan operator's running rows_out total
// (spec.md §4.13: every operator's wrapped next() counts rows it
// produces) into Stats.RowsScanned, per spec.md §4.15/§6.5's
// cursor.stats.rows_scanned.
func (c *ExecutionCursor) refreshRowsScanned() {
	for _, s := range c.CollectOperatorStats() {
		if s.Name == "Scan" {
			c.Stats.RowsScanned = s.RowsOut
			return
		}
	}
}

// Columns returns the root physical node's output schema.
func (c *ExecutionCursor) Columns() []ColumnInfo {
	return c.columns
}

// CollectOperatorStats returns a depth-first snapshot list.
func (c *ExecutionCursor) CollectOperatorStats() []StatSnapshot {
	return c.operator.CollectStats(nil)
}

// Deinit destroys the operator tree post-order and drops the arena.
func (c *ExecutionCursor) Deinit() {
	if c.operator != nil {
		c.operator.Destroy()
	}
	c.arena = nil
}
