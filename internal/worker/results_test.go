package worker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/offsets"
	"github.com/tabsdata/td-go/internal/table"
)

func dummyFragment(t *testing.T) *table.Fragment {
	t.Helper()
	st, err := table.Open(filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	frag, err := st.Create(context.Background(), "t", 1, []table.Column{{Name: "x", Type: table.TypeInt}})
	require.NoError(t, err)
	return frag
}

func TestCoerceResults_Shapes(t *testing.T) {
	frag := dummyFragment(t)

	results, err := coerceResults([]any{frag, nil, []any{nil, frag}, []*table.Fragment{frag}}, 4)
	require.NoError(t, err)

	assert.Equal(t, frag, results[0].Fragment)
	assert.False(t, results[0].List)

	assert.Nil(t, results[1].Fragment)
	assert.Nil(t, results[1].latest())

	assert.True(t, results[2].List)
	assert.Equal(t, []*table.Fragment{nil, frag}, results[2].Fragments)
	assert.Equal(t, frag, results[2].latest())

	assert.True(t, results[3].List)
}

func TestCoerceResults_CountMismatch(t *testing.T) {
	_, err := coerceResults([]any{nil}, 2)
	assert.True(t, IsBadResult(err), "error = %v", err)

	_, err = coerceResults([]any{nil, nil, nil}, 2)
	assert.True(t, IsBadResult(err), "error = %v", err)
}

func TestCoerceResults_UnsupportedTypes(t *testing.T) {
	_, err := coerceResults([]any{"not a fragment"}, 1)
	assert.True(t, IsBadResult(err))

	// Nesting deeper than one list level is not a valid result shape.
	_, err = coerceResults([]any{[]any{[]any{}}}, 1)
	assert.True(t, IsBadResult(err))
}

func TestResultLatest_SkipsTrailingNils(t *testing.T) {
	frag := dummyFragment(t)

	res := Result{List: true, Fragments: []*table.Fragment{frag, nil, nil}}
	assert.Equal(t, frag, res.latest())

	res = Result{List: true, Fragments: []*table.Fragment{nil, nil}}
	assert.Nil(t, res.latest())
}

func TestConsumeOffsetPayload(t *testing.T) {
	state := offsets.New(offsets.Options{Declared: map[string]string{"last_id": "0"}})

	rest, err := consumeOffsetPayload([]any{nil, "99"}, state)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.True(t, state.Changed())
	assert.Equal(t, "99", state.Current()["last_id"])
}

func TestConsumeOffsetPayload_NilMeansNoUpdate(t *testing.T) {
	state := offsets.New(offsets.Options{})

	rest, err := consumeOffsetPayload([]any{nil, nil}, state)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.False(t, state.Changed())
}

func TestConsumeOffsetPayload_Empty(t *testing.T) {
	state := offsets.New(offsets.Options{})
	_, err := consumeOffsetPayload(nil, state)
	assert.True(t, IsBadResult(err))
}

func TestRegistry_Lifecycle(t *testing.T) {
	reg := NewRegistry()
	fn := Function{Name: "f", Run: func(ctx context.Context, rc *dispatch.RunContext, in []dispatch.Slot) ([]any, error) {
		return nil, nil
	}}
	require.NoError(t, reg.Register(fn))

	got, ok := reg.Lookup("f")
	assert.True(t, ok)
	assert.Equal(t, "f", got.Name)

	assert.Error(t, reg.Register(fn), "duplicate registration")
	assert.Error(t, reg.Register(Function{Run: fn.Run}), "missing name")
	assert.Error(t, reg.Register(Function{Name: "g"}), "missing body")

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}
