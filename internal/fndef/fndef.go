// Package fndef compiles function declarations from CUE into the typed
// form the worker binds against.
//
// A declaration names the function, its input sources in parameter
// order, its declared output tables, and optional incremental-value
// settings. The worker pairs the declaration with the request envelope:
// table inputs consume envelope entries positionally, while sql, file
// and plugin inputs are driven entirely by the declaration.
package fndef

// Input source kinds.
const (
	KindTable  = "table"
	KindSQL    = "sql"
	KindFile   = "file"
	KindPlugin = "plugin"
)

// Definition is one compiled function declaration.
type Definition struct {
	Name        string
	Description string

	// Inputs are the declared sources, one per function parameter, in
	// parameter order.
	Inputs []InputSpec

	// Outputs are the declared output table names, in declaration order.
	Outputs []string

	// InitialValues are incremental values pinned at declaration time.
	InitialValues map[string]string

	// UseInitialValues makes the pinned values take precedence over
	// stored ones for the run.
	UseInitialValues bool

	// ReturnsOffsets selects the positional offset-propagation
	// convention: the function's last return value is the new offset
	// payload rather than an output table.
	ReturnsOffsets bool

	// Destination optionally names a registered destination plugin the
	// worker streams published results to.
	Destination string
}

// InputSpec declares one input source.
type InputSpec struct {
	// Kind is one of table, sql, file, plugin.
	Kind string

	// Driver and DSN configure sql sources. DSNEnv names an environment
	// variable to read the DSN from instead of embedding it.
	Driver string
	DSN    string
	DSNEnv string

	// Queries are the declared sql statements, order-significant.
	Queries []string

	// URIs are the declared files for file sources, order-significant.
	URIs []string

	// Plugin names a registered source plugin for plugin sources.
	Plugin string

	// Chunks, when positive, pins the chunk count a source plugin must
	// return; a differing count is a fatal arity mismatch at staging.
	Chunks int

	// List forces list shape even for a single query/uri/chunk.
	List bool
}
