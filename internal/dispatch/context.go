package dispatch

import (
	"log/slog"

	"github.com/tabsdata/td-go/internal/envelope"
	"github.com/tabsdata/td-go/internal/offsets"
	"github.com/tabsdata/td-go/internal/table"
)

// RunContext is the shared execution context for one function run. It is
// constructed once by the worker and passed by reference to every
// component that stages data or issues external calls; there are no
// module-level singletons behind it.
type RunContext struct {
	// Request is the parsed request envelope.
	Request *envelope.Request

	// Offsets is the run's incremental-value state.
	Offsets *offsets.State

	// Store is the staging database for every fragment of this run.
	Store *table.Store

	// WorkDir is the run's private working directory; transports and
	// plugins land intermediate files here.
	WorkDir string

	// Indexes assigns run-unique fragment indexes.
	Indexes *IndexGenerator

	// Logger receives diagnostic output. Never nil.
	Logger *slog.Logger
}
