package offsets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsdata/td-go/internal/table"
)

func testStore(t *testing.T) *table.Store {
	t.Helper()
	s, err := table.Open(filepath.Join(t.TempDir(), "staging.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func offsetsFragment(t *testing.T, s *table.Store, rows ...[]any) *table.Fragment {
	t.Helper()
	frag, err := s.Create(context.Background(), table.StageName(1), 1, []table.Column{
		{Name: "variable", Type: table.TypeString},
		{Name: "value", Type: table.TypeString},
	})
	require.NoError(t, err)
	require.NoError(t, frag.Append(context.Background(), rows...))
	return frag
}

func TestNew_Fresh(t *testing.T) {
	s := New(Options{})
	assert.Equal(t, Fresh, s.Phase())
	assert.False(t, s.Changed())
	assert.Empty(t, s.Current())
	assert.Equal(t, DefaultOutputTable, s.OutputTable())
}

func TestLoad_NilFragmentIsFresh(t *testing.T) {
	s, err := Load(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, Fresh, s.Phase())
}

func TestLoad_ReadsStoredValues(t *testing.T) {
	st := testStore(t)
	frag := offsetsFragment(t, st, []any{"last_id", "42"}, []any{"cursor", "abc"})

	s, err := Load(context.Background(), frag, Options{})
	require.NoError(t, err)
	assert.Equal(t, Loaded, s.Phase())
	assert.False(t, s.Changed(), "loading stored values is not a change")
	assert.Equal(t, map[string]string{"last_id": "42", "cursor": "abc"}, s.Current())
}

func TestLoad_MissingColumnsIsCorrupt(t *testing.T) {
	st := testStore(t)
	frag, err := st.Create(context.Background(), table.StageName(1), 1, []table.Column{
		{Name: "wrong", Type: table.TypeString},
	})
	require.NoError(t, err)

	_, err = Load(context.Background(), frag, Options{})
	assert.True(t, IsCorrupt(err), "error = %v", err)
}

func TestCurrent_DeclaredTakesPrecedence(t *testing.T) {
	st := testStore(t)
	frag := offsetsFragment(t, st, []any{"last_id", "42"})

	s, err := Load(context.Background(), frag, Options{
		Declared:    map[string]string{"last_id": "0"},
		UseDeclared: true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"last_id": "0"}, s.Current())
	assert.False(t, s.Changed(), "pinned declared values do not count as changed")
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Update(map[string]string{"k": "1"}))

	m := s.Current()
	m["k"] = "mutated"
	assert.Equal(t, "1", s.Current()["k"])
}

func TestUpdate_MapPayloads(t *testing.T) {
	s := New(Options{})

	require.NoError(t, s.Update(map[string]string{"last_id": "7"}))
	assert.Equal(t, Updated, s.Phase())
	assert.True(t, s.Changed())

	require.NoError(t, s.Update(map[string]any{"last_id": int64(9), "flag": true}))
	assert.Equal(t, map[string]string{"last_id": "9", "flag": "true"}, s.Current())
}

func TestUpdate_LastWriteWins(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Update(map[string]string{"last_id": "1"}))
	require.NoError(t, s.Update(map[string]string{"last_id": "2"}))
	assert.Equal(t, "2", s.Current()["last_id"])
}

func TestUpdate_BareScalarWithSoleVariable(t *testing.T) {
	s := New(Options{Declared: map[string]string{"last_id": "0"}})
	require.NoError(t, s.Update(int64(99)))
	assert.Equal(t, map[string]string{"last_id": "99"}, s.Current())
}

func TestUpdate_BareScalarAmbiguous(t *testing.T) {
	s := New(Options{Declared: map[string]string{"a": "0", "b": "0"}})

	err := s.Update("value")
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ErrCodeBadValue, oe.Code)
}

func TestUpdate_BareScalarNoVariables(t *testing.T) {
	s := New(Options{})
	assert.Error(t, s.Update(int64(1)), "no variable to bind a bare scalar to")
}

func TestUpdate_UnsupportedValueType(t *testing.T) {
	s := New(Options{Declared: map[string]string{"k": ""}})

	err := s.Update(map[string]any{"k": struct{}{}})
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ErrCodeBadValue, oe.Code)
}

func TestSerialize_WritesSortedRows(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	s := New(Options{})
	require.NoError(t, s.Update(map[string]string{"zeta": "1", "alpha": "2"}))

	frag, err := s.Serialize(ctx, st, 5)
	require.NoError(t, err)
	assert.Equal(t, Serialized, s.Phase())

	rows, err := frag.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha", rows[0][0])
	assert.Equal(t, "zeta", rows[1][0])
}

func TestSerialize_UnchangedRefused(t *testing.T) {
	st := testStore(t)
	s := New(Options{})

	_, err := s.Serialize(context.Background(), st, 1)
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ErrCodeFinal, oe.Code)
}

func TestUpdate_AfterSerializeRefused(t *testing.T) {
	st := testStore(t)
	s := New(Options{})
	require.NoError(t, s.Update(map[string]string{"k": "1"}))
	_, err := s.Serialize(context.Background(), st, 1)
	require.NoError(t, err)

	err = s.Update(map[string]string{"k": "2"})
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ErrCodeFinal, oe.Code)
}

func TestSerialize_AtMostOnce(t *testing.T) {
	st := testStore(t)
	s := New(Options{})
	require.NoError(t, s.Update(map[string]string{"k": "1"}))
	_, err := s.Serialize(context.Background(), st, 1)
	require.NoError(t, err)

	_, err = s.Serialize(context.Background(), st, 2)
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, ErrCodeFinal, oe.Code)
}

func TestMarkSerialized_Finalizes(t *testing.T) {
	s := New(Options{})
	s.MarkSerialized()
	assert.Equal(t, Serialized, s.Phase())
	assert.Error(t, s.Update(map[string]string{"k": "1"}))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "fresh", Fresh.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "serialized", Serialized.String())
}
