// Package offsets implements the incremental-value state machine that
// makes resumable sources correct across repeated runs.
//
// The state carries the watermark variables (for example a last-modified
// timestamp or a numeric cursor) a source importer substitutes into its
// queries. It is constructed exactly once per run from the system input
// table, mutated at most once by contract when the run records new
// values, and serialized back out as a system output table if and only
// if it changed. A run that records nothing must mark the system table
// as no-data rather than rewrite stale content.
//
// Phases: Fresh (no prior state) or Loaded (prior state read) on
// construction, Updated after a value is recorded, Serialized once the
// response writer has consumed the state. Recording values repeatedly is
// tolerated with last-write-wins semantics, but the authoring contract
// expects at most one update per run.
package offsets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tabsdata/td-go/internal/table"
)

// DefaultOutputTable is the system table that carries new watermarks
// forward when the run declares no explicit system output.
const DefaultOutputTable = "td-initial-values"

// Column names of the system offsets table.
const (
	colVariable = "variable"
	colValue    = "value"
)

// Phase is the lifecycle phase of the offset state.
type Phase int

const (
	// Fresh means no prior offset exists; current values are empty.
	Fresh Phase = iota

	// Loaded means prior values were read from the system input table.
	Loaded

	// Updated means the run has recorded new values.
	Updated

	// Serialized is the final phase: the state was written out or
	// explicitly suppressed at response-writing time.
	Serialized
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Fresh:
		return "fresh"
	case Loaded:
		return "loaded"
	case Updated:
		return "updated"
	case Serialized:
		return "serialized"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Error represents an offset-state failure.
type Error struct {
	Code    ErrorCode
	Message string
}

// ErrorCode categorizes offset errors.
type ErrorCode string

const (
	// ErrCodeCorrupt indicates the system input table exists but lacks
	// the expected variable/value columns. Treating this as "no prior
	// offset" would silently reset a user's incremental cursor, so it
	// is fatal instead.
	ErrCodeCorrupt ErrorCode = "CORRUPT_OFFSETS"

	// ErrCodeBadValue indicates an update payload that cannot be
	// normalized into the variable mapping.
	ErrCodeBadValue ErrorCode = "BAD_OFFSET_VALUE"

	// ErrCodeFinal indicates a mutation attempted after serialization.
	ErrCodeFinal ErrorCode = "OFFSETS_FINAL"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCorrupt returns true if the error is a corrupt-offset-state error.
// Uses errors.As to handle wrapped errors.
func IsCorrupt(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Code == ErrCodeCorrupt
}

// Options configures offset-state construction for one run.
type Options struct {
	// OutputTable names the system table that carries the new watermark
	// forward. Defaults to DefaultOutputTable.
	OutputTable string

	// Declared holds initial values pinned at declaration time.
	Declared map[string]string

	// UseDeclared makes Current return the declared values instead of
	// stored ones. Declared values take precedence for the run but do
	// not count as changed.
	UseDeclared bool

	// ReturnsValues distinguishes the two propagation conventions: a
	// plugin updates the state directly, while a plain source function's
	// last positional return value is the new offset payload.
	ReturnsValues bool
}

// State tracks the incremental values for one run.
type State struct {
	phase   Phase
	current map[string]string
	opts    Options
	changed bool
}

// New constructs a Fresh state with no prior values.
func New(opts Options) *State {
	if opts.OutputTable == "" {
		opts.OutputTable = DefaultOutputTable
	}
	return &State{phase: Fresh, current: map[string]string{}, opts: opts}
}

// Load constructs the state from the staged system input fragment. A nil
// fragment means no prior state was supplied and yields a Fresh state. A
// fragment missing the variable/value columns is corrupt, never empty.
func Load(ctx context.Context, frag *table.Fragment, opts Options) (*State, error) {
	s := New(opts)
	if frag == nil {
		return s, nil
	}

	varIdx, valIdx := -1, -1
	for i, c := range frag.Columns() {
		switch c.Name {
		case colVariable:
			varIdx = i
		case colValue:
			valIdx = i
		}
	}
	if varIdx < 0 || valIdx < 0 {
		return nil, &Error{Code: ErrCodeCorrupt,
			Message: fmt.Sprintf("system table %q missing variable/value columns", frag.Name())}
	}

	rows, err := frag.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load offsets: %w", err)
	}
	for _, row := range rows {
		variable, ok := row[varIdx].(string)
		if !ok || variable == "" {
			return nil, &Error{Code: ErrCodeCorrupt,
				Message: fmt.Sprintf("system table %q has a row without a variable name", frag.Name())}
		}
		s.current[variable] = formatScalar(row[valIdx])
	}
	s.phase = Loaded
	return s, nil
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase { return s.phase }

// Changed reports whether the run has recorded new values.
func (s *State) Changed() bool { return s.changed }

// ReturnsValues reports the offset-propagation convention in force.
func (s *State) ReturnsValues() bool { return s.opts.ReturnsValues }

// OutputTable returns the system table that carries new values forward.
func (s *State) OutputTable() string { return s.opts.OutputTable }

// Current returns the variable mapping to substitute into parameterized
// queries and paths. Declaration-time pinned values take precedence over
// stored ones when UseDeclared is set.
func (s *State) Current() map[string]string {
	src := s.current
	if s.opts.UseDeclared {
		src = s.opts.Declared
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Update records new values, replacing the current mapping and marking
// the state changed. The payload may be a map (plugin convention) or a
// bare scalar returned positionally by a plain source function; a bare
// scalar is only unambiguous when exactly one variable is in play.
// Calling Update repeatedly leaves only the last value.
func (s *State) Update(payload any) error {
	if s.phase == Serialized {
		return &Error{Code: ErrCodeFinal, Message: "offset state already serialized"}
	}
	values, err := s.normalize(payload)
	if err != nil {
		return err
	}
	s.current = values
	s.changed = true
	s.phase = Updated
	return nil
}

func (s *State) normalize(payload any) (map[string]string, error) {
	switch v := payload.(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, val := range v {
			str, err := scalarString(val)
			if err != nil {
				return nil, &Error{Code: ErrCodeBadValue,
					Message: fmt.Sprintf("variable %q: %v", k, err)}
			}
			out[k] = str
		}
		return out, nil
	default:
		str, err := scalarString(payload)
		if err != nil {
			return nil, &Error{Code: ErrCodeBadValue, Message: err.Error()}
		}
		variable, err := s.soleVariable()
		if err != nil {
			return nil, err
		}
		return map[string]string{variable: str}, nil
	}
}

// soleVariable resolves which variable a bare scalar payload refers to.
func (s *State) soleVariable() (string, error) {
	names := s.opts.Declared
	if len(names) == 0 {
		names = map[string]string{}
		for k := range s.current {
			names[k] = ""
		}
	}
	if len(names) != 1 {
		return "", &Error{Code: ErrCodeBadValue,
			Message: fmt.Sprintf("bare scalar offset is ambiguous with %d variables", len(names))}
	}
	for k := range names {
		return k, nil
	}
	return "", nil // unreachable
}

// Serialize materializes the recorded values as a fragment in the run's
// staging store and moves the state to its final phase. Only a changed
// state may be serialized; an unchanged state is suppressed via
// MarkSerialized instead.
func (s *State) Serialize(ctx context.Context, st *table.Store, idx uint64) (*table.Fragment, error) {
	if s.phase == Serialized {
		return nil, &Error{Code: ErrCodeFinal, Message: "offset state already serialized"}
	}
	if !s.changed {
		return nil, &Error{Code: ErrCodeFinal, Message: "offset state unchanged, nothing to serialize"}
	}

	cols := []table.Column{
		{Name: colVariable, Type: table.TypeString},
		{Name: colValue, Type: table.TypeString},
	}
	frag, err := st.Create(ctx, table.StageName(idx), idx, cols)
	if err != nil {
		return nil, fmt.Errorf("serialize offsets: %w", err)
	}
	for _, variable := range sortedKeys(s.current) {
		if err := frag.Append(ctx, []any{variable, s.current[variable]}); err != nil {
			return nil, fmt.Errorf("serialize offsets: %w", err)
		}
	}
	s.phase = Serialized
	return frag, nil
}

// MarkSerialized finalizes an unchanged state at response-writing time.
func (s *State) MarkSerialized() {
	s.phase = Serialized
}

// sortedKeys keeps serialized system tables deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", fmt.Errorf("unsupported offset value type %T", v)
	}
}

func formatScalar(v any) string {
	s, err := scalarString(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}
