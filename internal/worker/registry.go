package worker

import (
	"context"
	"fmt"

	"github.com/tabsdata/td-go/internal/dispatch"
)

// Function is one registered user function. Run receives the staged
// input slots in declared order and returns one value per declared
// output, positionally; a nil value means the output was not produced
// this run. When the declaration sets returns_offsets, the trailing
// return value is the new offset payload instead of an output table.
type Function struct {
	Name string
	Run  func(ctx context.Context, rc *dispatch.RunContext, in []dispatch.Slot) ([]any, error)
}

// Registry maps function names to registered functions. Binaries built
// on the SDK register their functions once at startup.
type Registry struct {
	fns map[string]Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Function)}
}

// Register adds a function. Registering the same name twice is an
// error: silent replacement would mask misconfigured binaries.
func (r *Registry) Register(fn Function) error {
	if fn.Name == "" {
		return fmt.Errorf("register: function has no name")
	}
	if fn.Run == nil {
		return fmt.Errorf("register %q: function has no body", fn.Name)
	}
	if _, exists := r.fns[fn.Name]; exists {
		return fmt.Errorf("register %q: already registered", fn.Name)
	}
	r.fns[fn.Name] = fn
	return nil
}

// MustRegister is like Register but panics on error. Use at package
// initialization where a failure is a programming error.
func (r *Registry) MustRegister(fn Function) {
	if err := r.Register(fn); err != nil {
		panic(err)
	}
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}
