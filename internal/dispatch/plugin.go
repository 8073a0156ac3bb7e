package dispatch

import (
	"context"

	"github.com/tabsdata/td-go/internal/table"
)

// SourcePlugin is the opaque contract for sources that encapsulate their
// own trigger logic (cloud connectors and the like). The plugin receives
// the full run context and is solely responsible for its own staging; it
// returns the paths of the files it landed in the working directory, in
// declaration order. An empty path marks a chunk that produced no data.
type SourcePlugin interface {
	Chunk(ctx context.Context, rc *RunContext) ([]string, error)
}

// DestinationPlugin is the opaque contract for destinations that
// encapsulate their own flush logic. It receives the full run context
// and the published result fragments.
type DestinationPlugin interface {
	Stream(ctx context.Context, rc *RunContext, results ...*table.Fragment) error
}

// PluginSource adapts a SourcePlugin into a dispatchable Source. The
// dispatcher does not interpret the plugin's output beyond loading the
// returned files and checking positional arity.
type PluginSource struct {
	Plugin SourcePlugin

	// Expect, when positive, is the declared chunk count; a differing
	// result is a fatal arity mismatch.
	Expect int

	// List marks the slot as a list input even for a single chunk.
	List bool
}

// Stage delegates to the plugin and loads every returned file into the
// staging store under a fresh index.
func (p PluginSource) Stage(ctx context.Context, rc *RunContext) (Slot, error) {
	paths, err := p.Plugin.Chunk(ctx, rc)
	if err != nil {
		return Slot{}, &Error{Code: ErrCodeStageFailed, Slot: -1, Message: err.Error()}
	}
	if p.Expect > 0 && len(paths) != p.Expect {
		return Slot{}, NewArityError(p.Expect, len(paths))
	}

	values := make([]*table.Fragment, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			values = append(values, nil)
			continue
		}
		frag, err := table.LoadCSV(ctx, rc.Store, path, rc.Indexes.Next())
		if err != nil {
			return Slot{}, &Error{Code: ErrCodeStageFailed, Slot: -1, Message: err.Error()}
		}
		values = append(values, frag)
	}
	return Slot{Values: values, List: p.List || len(values) > 1}, nil
}
