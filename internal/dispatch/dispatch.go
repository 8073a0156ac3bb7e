package dispatch

import (
	"context"

	"github.com/google/uuid"
)

// Dispatcher resolves declared inputs into staged fragment slots for one
// run.
type Dispatcher struct {
	rc *RunContext
}

// New creates a dispatcher for the run and records the work-directory
// token on the request envelope. The token is set exactly once, here;
// downstream stages read it off the envelope.
func New(rc *RunContext) (*Dispatcher, error) {
	if rc.Indexes == nil {
		rc.Indexes = NewIndexGenerator()
	}
	token := rc.WorkDir
	if token == "" {
		token = uuid.Must(uuid.NewV7()).String()
	}
	if err := rc.Request.SetWork(token); err != nil {
		return nil, err
	}
	return &Dispatcher{rc: rc}, nil
}

// Dispatch stages every input slot in declared order. The returned slice
// has exactly one slot per source, positionally aligned with the
// declaration; any staging failure aborts the whole dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, sources []Source) ([]Slot, error) {
	slots := make([]Slot, 0, len(sources))
	for i, src := range sources {
		d.rc.Logger.Debug("staging input", "slot", i)
		slot, err := src.Stage(ctx, d.rc)
		if err != nil {
			if de, ok := err.(*Error); ok && de.Slot < 0 {
				de.Slot = i
			}
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
