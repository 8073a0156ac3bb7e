package envelope

// YAML node tags used as variant discriminants on the wire.
const (
	TagV2            = "!V2"
	TagTable         = "!Table"
	TagTableVersions = "!TableVersions"
	TagData          = "!Data"
	TagNoData        = "!NoData"
)

// Location identifies where a concrete data artifact lives: a URI plus
// the environment prefix under which the URI is resolvable.
type Location struct {
	URI       string
	EnvPrefix string
}

// TableRef identifies one table in a request envelope. All fields are
// immutable once parsed; Name is the only required field.
type TableRef struct {
	Name               string
	Collection         string
	CollectionID       string
	TableID            string
	TableVersionID     string
	ExecutionID        string
	TransactionID      string
	TableDataVersionID string

	// Location is nil (or has an empty URI) when the table has no
	// materialized data yet. That is a legal, expected state.
	Location *Location

	// Position hints used to reassemble fan-out results back into the
	// correct function-parameter slot.
	InputIdx   int
	TablePos   int
	VersionPos int
}

// HasData reports whether the reference points at materialized data.
func (t *TableRef) HasData() bool {
	return t.Location != nil && t.Location.URI != ""
}

// TableVersions is the ordered version history of one logical input,
// used when a function parameter consumes all versions of a table
// rather than a single snapshot. Always non-empty when present.
type TableVersions struct {
	Versions []*TableRef
}

// InputEntry is one entry of a request's input sequence: either a single
// TableRef or a TableVersions set. The sum is closed; decoding any other
// tag fails.
type InputEntry interface {
	inputEntry()
}

func (*TableRef) inputEntry()      {}
func (*TableVersions) inputEntry() {}

// Request is the parsed V2 request envelope. Every field except the
// work token is immutable after parsing.
type Request struct {
	ExecutionID   string
	FunctionRunID string
	TransactionID string
	ScheduledOn   string
	TriggeredOn   string

	// FunctionBundle locates the packaged user code.
	FunctionBundle Location

	// FunctionData is the root location under which raw (non-tabsdata)
	// input data is persisted.
	FunctionData Location

	// Input maps positionally to function parameters; order is
	// semantically significant.
	Input []InputEntry

	// Output lists the declared function outputs, in declaration order.
	Output []*TableRef

	// SystemInput / SystemOutput carry platform-internal tables such as
	// the incremental-offsets table. Not user-visible.
	SystemInput  []InputEntry
	SystemOutput []*TableRef

	work    string
	workSet bool
}

// Work returns the work-directory token, empty until set.
func (r *Request) Work() string { return r.work }

// SetWork records the work-directory token. The token is settable
// exactly once, by the dispatcher; a second call is an error.
func (r *Request) SetWork(token string) error {
	if r.workSet {
		return &Error{Code: ErrCodeWorkAlreadySet, Field: "work",
			Message: "work token already set"}
	}
	r.work = token
	r.workSet = true
	return nil
}

// SystemInputRef returns the first system-input table reference, or nil
// when the run carries no prior system state.
func (r *Request) SystemInputRef() *TableRef {
	for _, entry := range r.SystemInput {
		if ref, ok := entry.(*TableRef); ok {
			return ref
		}
	}
	return nil
}

// SystemOutputRef returns the first system-output table reference, or
// nil when the run declares none.
func (r *Request) SystemOutputRef() *TableRef {
	if len(r.SystemOutput) == 0 {
		return nil
	}
	return r.SystemOutput[0]
}
