package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsdata/td-go/internal/envelope"
)

func writeResponseFixture(t *testing.T) string {
	t.Helper()
	resp := &envelope.Response{Output: []envelope.OutputEntry{
		envelope.Data{Table: "report", ColumnCount: 3, RowCount: 12, SchemaHash: "ab12"},
		envelope.NoData{Table: "summary"},
		envelope.Data{Table: "td-initial-values", ColumnCount: 2, RowCount: 1, SchemaHash: "cd34"},
	}}
	path := filepath.Join(t.TempDir(), "response.yaml")
	require.NoError(t, resp.WriteFile(path))
	return path
}

func TestResponseCommand_Text(t *testing.T) {
	path := writeResponseFixture(t)

	cmd := testRoot()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"response", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "report: 3 columns, 12 rows")
	assert.Contains(t, out.String(), "summary: no data")
	assert.Contains(t, out.String(), "td-initial-values: 2 columns, 1 rows")
}

func TestResponseCommand_JSON(t *testing.T) {
	path := writeResponseFixture(t)

	cmd := testRoot()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"response", path, "--format", "json"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	entries := resp.Data.([]any)
	require.Len(t, entries, 3)

	first := entries[0].(map[string]any)
	assert.Equal(t, "report", first["table"])
	assert.Equal(t, true, first["has_data"])
	assert.Equal(t, float64(3), first["columns"])
	assert.Equal(t, float64(12), first["rows"])
	assert.Equal(t, "ab12", first["schema_hash"])

	second := entries[1].(map[string]any)
	assert.Equal(t, "summary", second["table"])
	assert.Equal(t, false, second["has_data"])
}

func TestResponseCommand_BadFile(t *testing.T) {
	cmd := testRoot()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"response", filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out.String(), "Error [PARSE]")
}
