// Package sydraerr defines the three error categories from the error
// handling design: corruption/IO, protocol/query, and runtime. Each
// category is a sentinel that call sites wrap with github.com/pkg/errors
// so context and a stack survive without losing errors.Is/As access to
// the sentinel.
package sydraerr

import "github.com/pkg/errors"

var (
	// Corruption marks WAL CRC mismatches, short reads, segment read
	// failures, and manifest parse failures. Recovery stops replay of the
	// offending file but continues the rest; never fatal unless the data
	// directory itself cannot be opened.
	Corruption = errors.New("corruption")

	// Protocol marks lex/parse/validate/plan-shape failures. The cursor is
	// never returned in a partially built state on this error category.
	Protocol = errors.New("protocol")

	// Runtime marks division-by-zero, type mismatches, and allocation
	// failures surfaced from next(). The cursor remains destroyable.
	Runtime = errors.New("runtime")
)

// Wrap annotates err with msg and ties it to one of the sentinel
// categories above, so errors.Is(err, sydraerr.Corruption) etc. still
// works after wrapping.
func Wrap(category error, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &categorized{category: category, cause: errors.Wrap(err, msg)}
}

type categorized struct {
	category error
	cause    error
}

func (c *categorized) Error() string { return c.cause.Error() }
func (c *categorized) Unwrap() error { return c.cause }
func (c *categorized) Is(target error) bool {
	return target == c.category
}
