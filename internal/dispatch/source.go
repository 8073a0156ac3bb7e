package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/tabsdata/td-go/internal/envelope"
	"github.com/tabsdata/td-go/internal/table"
)

// Slot is the resolved value of one input parameter: the ordered
// fragments for the slot. Singular inputs carry exactly one value, which
// may be nil when the table has no data yet. List inputs carry one value
// per declared source, in declaration order, with nil marking sources
// that produced no rows.
type Slot struct {
	Values []*table.Fragment
	List   bool
}

// Fragment returns the value of a singular slot.
func (s Slot) Fragment() *table.Fragment {
	if s.List || len(s.Values) == 0 {
		return nil
	}
	return s.Values[0]
}

// Source stages the data behind one declared input. Implementations
// cover tabsdata table references, importer-backed raw sources, and
// opaque plugins; the dispatcher only ever calls this interface.
type Source interface {
	Stage(ctx context.Context, rc *RunContext) (Slot, error)
}

// TableSource stages a tabsdata input entry: a single table reference or
// a full version set.
type TableSource struct {
	Entry envelope.InputEntry
}

// Stage resolves the entry's locations into staged fragments. A
// reference without a URI resolves to a nil fragment. Version sets
// produce one value per version, ordered by the source's declared
// version position regardless of request order.
func (t TableSource) Stage(ctx context.Context, rc *RunContext) (Slot, error) {
	switch e := t.Entry.(type) {
	case *envelope.TableRef:
		frag, err := stageRef(ctx, rc, e)
		if err != nil {
			return Slot{}, err
		}
		return Slot{Values: []*table.Fragment{frag}}, nil
	case *envelope.TableVersions:
		refs := make([]*envelope.TableRef, len(e.Versions))
		copy(refs, e.Versions)
		sort.SliceStable(refs, func(i, j int) bool {
			return refs[i].VersionPos < refs[j].VersionPos
		})
		values := make([]*table.Fragment, 0, len(refs))
		for _, ref := range refs {
			frag, err := stageRef(ctx, rc, ref)
			if err != nil {
				return Slot{}, err
			}
			values = append(values, frag)
		}
		return Slot{Values: values, List: true}, nil
	default:
		return Slot{}, &Error{Code: ErrCodeStageFailed, Slot: -1,
			Message: fmt.Sprintf("unsupported input entry type %T", t.Entry)}
	}
}

// stageRef copies one referenced table into the run's staging store.
// A missing URI is the legal no-data-yet state; anything else that goes
// wrong is fatal.
func stageRef(ctx context.Context, rc *RunContext, ref *envelope.TableRef) (*table.Fragment, error) {
	if !ref.HasData() {
		rc.Logger.Debug("table reference has no data yet", "table", ref.Name)
		return nil, nil
	}
	frag, err := table.StageRef(ctx, rc.Store, ref.Location.URI, ref.Name, rc.Indexes.Next())
	if err != nil {
		return nil, &Error{Code: ErrCodeStageFailed, Slot: -1, Message: err.Error()}
	}
	return frag, nil
}
