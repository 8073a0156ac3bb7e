package worker

import (
	"context"
	"fmt"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/envelope"
	"github.com/tabsdata/td-go/internal/offsets"
)

// buildResponse reconciles the coerced results against the declared
// outputs and produces the response envelope. Each declared output
// yields exactly one entry, in declaration order, and the trailing
// entry always reports the offsets table, so every response carries
// len(outputs)+1 entries.
func buildResponse(ctx context.Context, rc *dispatch.RunContext, results []Result, state *offsets.State) (*envelope.Response, error) {
	outputs := rc.Request.Output
	if len(results) != len(outputs) {
		return nil, &Error{Code: ErrCodeInternal,
			Message: fmt.Sprintf("reconciling %d results against %d declared outputs", len(results), len(outputs))}
	}

	resp := &envelope.Response{Output: make([]envelope.OutputEntry, 0, len(outputs)+1)}
	for i, ref := range outputs {
		frag := results[i].latest()
		if frag == nil {
			resp.Output = append(resp.Output, envelope.NoData{Table: ref.Name})
			continue
		}
		meta, err := rc.Store.Publish(ctx, frag, ref.Name)
		if err != nil {
			return nil, fmt.Errorf("publishing output %q: %w", ref.Name, err)
		}
		if err := meta.Validate(); err != nil {
			return nil, &Error{Code: ErrCodeInternal,
				Message: fmt.Sprintf("published output %q failed validation: %v", ref.Name, err)}
		}
		resp.Output = append(resp.Output, envelope.Data{
			Table:       meta.Table,
			ColumnCount: meta.ColumnCount,
			RowCount:    meta.RowCount,
			SchemaHash:  meta.SchemaHash,
		})
	}

	entry, err := reconcileOffsets(ctx, rc, state)
	if err != nil {
		return nil, err
	}
	resp.Output = append(resp.Output, entry)
	return resp, nil
}

// reconcileOffsets serializes the offset state when it changed during
// the run, publishing the offsets table alongside the outputs; an
// unchanged state still produces an entry so consumers see the slot.
func reconcileOffsets(ctx context.Context, rc *dispatch.RunContext, state *offsets.State) (envelope.OutputEntry, error) {
	if !state.Changed() {
		state.MarkSerialized()
		return envelope.NoData{Table: state.OutputTable()}, nil
	}
	frag, err := state.Serialize(ctx, rc.Store, rc.Indexes.Next())
	if err != nil {
		return nil, fmt.Errorf("serializing offsets: %w", err)
	}
	meta, err := rc.Store.Publish(ctx, frag, state.OutputTable())
	if err != nil {
		return nil, fmt.Errorf("publishing offsets table: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, &Error{Code: ErrCodeInternal,
			Message: fmt.Sprintf("offsets table failed validation: %v", err)}
	}
	return envelope.Data{
		Table:       meta.Table,
		ColumnCount: meta.ColumnCount,
		RowCount:    meta.RowCount,
		SchemaHash:  meta.SchemaHash,
	}, nil
}
