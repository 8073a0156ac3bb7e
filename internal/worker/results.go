package worker

import (
	"fmt"

	"github.com/tabsdata/td-go/internal/offsets"
	"github.com/tabsdata/td-go/internal/table"
)

// Result is one element of the coerced results collection: a fragment,
// an ordered list of fragments (multi-version output), or nothing.
// Declared outputs that were not produced are represented explicitly -
// never silently dropped - so the response can mark them no-data.
type Result struct {
	Fragment  *table.Fragment
	Fragments []*table.Fragment
	List      bool
}

// latest resolves the fragment that represents the output's current
// data: the single fragment, or the last non-nil version of a list.
func (r Result) latest() *table.Fragment {
	if !r.List {
		return r.Fragment
	}
	for i := len(r.Fragments) - 1; i >= 0; i-- {
		if r.Fragments[i] != nil {
			return r.Fragments[i]
		}
	}
	return nil
}

// coerceResults maps the function's raw return values onto the declared
// output shape. The walk is structural: leaves are fragments or nil,
// one level of nesting expresses a multi-version output, and the
// positional count must exactly match the declared outputs.
func coerceResults(raw []any, declared int) ([]Result, error) {
	if len(raw) != declared {
		return nil, &Error{Code: ErrCodeBadResult,
			Message: fmt.Sprintf("function returned %d values, %d outputs declared", len(raw), declared)}
	}
	results := make([]Result, declared)
	for i, v := range raw {
		res, err := coerceResult(v, i)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func coerceResult(v any, pos int) (Result, error) {
	switch val := v.(type) {
	case nil:
		return Result{}, nil
	case *table.Fragment:
		return Result{Fragment: val}, nil
	case []*table.Fragment:
		return Result{Fragments: val, List: true}, nil
	case []any:
		frags := make([]*table.Fragment, len(val))
		for j, elem := range val {
			switch e := elem.(type) {
			case nil:
				frags[j] = nil
			case *table.Fragment:
				frags[j] = e
			default:
				return Result{}, &Error{Code: ErrCodeBadResult,
					Message: fmt.Sprintf("result[%d][%d] has unsupported type %T", pos, j, elem)}
			}
		}
		return Result{Fragments: frags, List: true}, nil
	default:
		return Result{}, &Error{Code: ErrCodeBadResult,
			Message: fmt.Sprintf("result[%d] has unsupported type %T", pos, v)}
	}
}

// consumeOffsetPayload applies the positional offset-propagation
// convention: the trailing return value is the new offset payload, not
// an output table. A nil payload means the run recorded no new values.
func consumeOffsetPayload(raw []any, state *offsets.State) ([]any, error) {
	if len(raw) == 0 {
		return nil, &Error{Code: ErrCodeBadResult,
			Message: "function declares returns_offsets but returned no values"}
	}
	payload := raw[len(raw)-1]
	if payload != nil {
		if err := state.Update(payload); err != nil {
			return nil, err
		}
	}
	return raw[:len(raw)-1], nil
}
