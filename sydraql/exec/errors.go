package exec

import "github.com/pkg/errors"

// ExecuteError variants per spec.md §6.5 (a taxonomy of sentinel causes,
// not distinct Go types — each is wrapped via sydraerr with the
// appropriate category so errors.Is still classifies it).
var (
	ErrParse      = errors.New("parse error")
	ErrValidate   = errors.New("validation failed")
	ErrBuild      = errors.New("build error")
	ErrOptimize   = errors.New("optimize error")
	ErrPhysical   = errors.New("physical planning error")

	ErrUnsupportedPlan       = errors.New("unsupported plan")
	ErrUnsupportedAggregate  = errors.New("unsupported aggregate")
	ErrUnsupportedExpression = errors.New("unsupported expression")
	ErrDivisionByZero        = errors.New("division by zero")
	ErrTypeMismatch          = errors.New("type mismatch")

	ErrQueryRange  = errors.New("query range I/O error")
	ErrOutOfMemory = errors.New("out of memory")
)
