// Package sydralog provides the process-wide structured logger used by
// every storage-engine component, in the style of friggdb's use of
// go-kit/log: a base logfmt logger decorated with timestamp and caller,
// narrowed per component with log.With.
package sydralog

import (
	"os"

	"github.com/go-kit/log"
)

// Base is the process-wide root logger. Components derive a scoped
// logger from it with For.
var Base = log.With(
	log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)),
	"ts", log.DefaultTimestampUTC,
	"caller", log.DefaultCaller,
)

// For returns a logger tagged with the given component name.
func For(component string) log.Logger {
	return log.With(Base, "component", component)
}
