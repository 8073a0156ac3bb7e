package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/envelope"
	"github.com/tabsdata/td-go/internal/worker"
)

// writeRunFixtures lays out a request envelope and declaration for one
// runnable function and returns the artifact paths.
func writeRunFixtures(t *testing.T) (request, fndef, response string) {
	t.Helper()
	dir := t.TempDir()
	request = filepath.Join(dir, "request.yaml")
	fndef = filepath.Join(dir, "fn.cue")
	response = filepath.Join(dir, "response.yaml")

	req := &envelope.Request{
		ExecutionID:   "exec-cli",
		FunctionRunID: "run-cli",
		Output:        []*envelope.TableRef{{Name: "o1"}},
	}
	require.NoError(t, req.WriteFile(request))
	require.NoError(t, os.WriteFile(fndef, []byte(`
function: noop: {
	outputs: ["o1"]
}
`), 0o644))
	return request, fndef, response
}

func noopWorker(t *testing.T) *worker.Worker {
	t.Helper()
	reg := worker.NewRegistry()
	reg.MustRegister(worker.Function{
		Name: "noop",
		Run: func(ctx context.Context, rc *dispatch.RunContext, in []dispatch.Slot) ([]any, error) {
			return []any{nil}, nil
		},
	})
	return &worker.Worker{Registry: reg}
}

func TestRunCommand_EndToEnd(t *testing.T) {
	request, fndef, response := writeRunFixtures(t)

	w := noopWorker(t)
	cmd := NewRootCommand(w)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run",
		"--request", request,
		"--fndef", fndef,
		"--response", response,
	})

	before := slog.Default()
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), response)
	assert.NotNil(t, w.Logger, "run injects the worker's logger handle")
	assert.Same(t, before, slog.Default(), "run must not touch the process-wide logger")

	resp, err := envelope.ParseResponse(response)
	require.NoError(t, err)
	assert.Len(t, resp.Output, 2)
}

func TestRunCommand_MissingRequestFlag(t *testing.T) {
	_, fndef, response := writeRunFixtures(t)

	cmd := NewRootCommand(noopWorker(t))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--fndef", fndef, "--response", response})

	assert.Error(t, cmd.Execute())
}

func TestRunCommand_UnregisteredFunction(t *testing.T) {
	request, fndef, response := writeRunFixtures(t)

	cmd := NewRootCommand(&worker.Worker{Registry: worker.NewRegistry()})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run",
		"--request", request,
		"--fndef", fndef,
		"--response", response,
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	_, statErr := os.Stat(response)
	assert.True(t, os.IsNotExist(statErr), "failed run must not write a response")
}
