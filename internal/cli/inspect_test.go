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

func writeInspectRequest(t *testing.T) string {
	t.Helper()
	req := &envelope.Request{
		ExecutionID:   "exec-7",
		FunctionRunID: "run-7",
		TransactionID: "txn-7",
		Input: []envelope.InputEntry{
			&envelope.TableRef{Name: "users", Location: &envelope.Location{URI: "users.db"}},
			&envelope.TableRef{Name: "orders"},
			&envelope.TableVersions{Versions: []*envelope.TableRef{
				{Name: "events", VersionPos: 0},
				{Name: "events", VersionPos: 1},
			}},
		},
		Output: []*envelope.TableRef{{Name: "report"}},
	}
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, req.WriteFile(path))
	return path
}

func TestInspectCommand_Text(t *testing.T) {
	path := writeInspectRequest(t)

	cmd := testRoot()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"inspect", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "execution exec-7 run run-7")
	assert.Contains(t, out.String(), "orders (no data)")
	assert.Contains(t, out.String(), "events (2 versions)")
	assert.Contains(t, out.String(), "outputs [report]")
}

func TestInspectCommand_JSON(t *testing.T) {
	path := writeInspectRequest(t)

	cmd := testRoot()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"inspect", path, "--format", "json"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "exec-7", data["execution_id"])
	assert.Equal(t, "run-7", data["function_run_id"])
	assert.Equal(t, "txn-7", data["transaction_id"])
	assert.Equal(t, []any{"users", "orders (no data)", "events (2 versions)"}, data["inputs"])
	assert.Equal(t, []any{"report"}, data["outputs"])
}

func TestInspectCommand_BadFile(t *testing.T) {
	cmd := testRoot()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"inspect", filepath.Join(t.TempDir(), "missing.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out.String(), "Error [PARSE]")
}
