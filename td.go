// Package td is the public surface of the tabsdata worker SDK.
//
// A function binary registers its functions and plugin bindings on a
// Worker, then hands the worker to the CLI:
//
//	w := &td.Worker{Registry: td.NewRegistry()}
//	w.Registry.MustRegister(td.Function{Name: "sync", Run: sync})
//	if err := td.BindObjectStore(w); err != nil { ... }
//	cmd := td.NewRootCommand(w)
//	if err := cmd.Execute(); err != nil {
//		os.Exit(td.ExitCode(err))
//	}
//
// The package re-exports the internal types a function author touches;
// everything else stays behind internal.
package td

import (
	"github.com/spf13/cobra"

	"github.com/tabsdata/td-go/internal/cli"
	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/importer"
	"github.com/tabsdata/td-go/internal/plugin"
	"github.com/tabsdata/td-go/internal/table"
	"github.com/tabsdata/td-go/internal/worker"
)

// Worker executes function runs. See worker.Worker.
type Worker = worker.Worker

// Registry maps function names to registered functions.
type Registry = worker.Registry

// Function is one registered user function.
type Function = worker.Function

// RunConfig locates the artifacts of one run.
type RunConfig = worker.RunConfig

// RunContext is the shared execution context passed to functions and
// plugins.
type RunContext = dispatch.RunContext

// Slot is the resolved value of one input parameter.
type Slot = dispatch.Slot

// Fragment is one staged unit of tabular data.
type Fragment = table.Fragment

// SourcePlugin and DestinationPlugin are the opaque connector
// contracts.
type (
	SourcePlugin      = dispatch.SourcePlugin
	DestinationPlugin = dispatch.DestinationPlugin
)

// Transport moves one remote or local file into the working directory.
type Transport = importer.Transport

// NewRegistry creates an empty function registry.
func NewRegistry() *Registry { return worker.NewRegistry() }

// BindObjectStore wires the built-in object-store plugins into the
// worker from TD_STORE_* environment variables. A missing store is a
// no-op.
func BindObjectStore(w *Worker) error { return plugin.Bind(w) }

// NewRootCommand creates the tdworker CLI bound to the worker.
func NewRootCommand(w *Worker) *cobra.Command { return cli.NewRootCommand(w) }

// Exit codes returned by ExitCode.
const (
	ExitSuccess      = cli.ExitSuccess
	ExitFailure      = cli.ExitFailure
	ExitCommandError = cli.ExitCommandError
)

// ExitCode maps a CLI error to its process exit code.
func ExitCode(err error) int { return cli.GetExitCode(err) }
