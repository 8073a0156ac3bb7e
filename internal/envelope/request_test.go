package envelope

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requestFixture = `!V2
info:
  execution_id: exec-001
  function_run_id: run-001
  transaction_id: txn-001
  scheduled_on: "2026-08-26T10:00:00Z"
  triggered_on: "2026-08-26T10:00:01Z"
  function_bundle:
    uri: /bundles/fn.tgz
    env_prefix: TD_BUNDLE
  function_data:
    uri: /data/fn
input:
  - !Table
    name: users
    collection: crm
    table_id: t-users
    input_idx: 0
    table_pos: 0
    location:
      uri: /data/users.db
  - !TableVersions
    - !Table
      name: events
      version_pos: 1
      location:
        uri: /data/events-1.db
    - !Table
      name: events
      version_pos: 0
      location:
        uri: /data/events-0.db
output:
  - !Table
    name: report
  - !Table
    name: summary
system_input:
  - !Table
    name: td-initial-values
system_output:
  - !Table
    name: td-initial-values
`

func writeRequest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseRequest_Fields(t *testing.T) {
	req, err := ParseRequest(writeRequest(t, requestFixture))
	require.NoError(t, err)

	assert.Equal(t, "exec-001", req.ExecutionID)
	assert.Equal(t, "run-001", req.FunctionRunID)
	assert.Equal(t, "txn-001", req.TransactionID)
	assert.Equal(t, "/bundles/fn.tgz", req.FunctionBundle.URI)
	assert.Equal(t, "TD_BUNDLE", req.FunctionBundle.EnvPrefix)

	require.Len(t, req.Input, 2)
	ref, ok := req.Input[0].(*TableRef)
	require.True(t, ok, "input[0] must be a single table reference")
	assert.Equal(t, "users", ref.Name)
	assert.Equal(t, "crm", ref.Collection)
	assert.True(t, ref.HasData())

	versions, ok := req.Input[1].(*TableVersions)
	require.True(t, ok, "input[1] must be a version set")
	require.Len(t, versions.Versions, 2)
	// Request order is preserved as-is; reordering happens at staging.
	assert.Equal(t, 1, versions.Versions[0].VersionPos)
	assert.Equal(t, 0, versions.Versions[1].VersionPos)

	require.Len(t, req.Output, 2)
	assert.Equal(t, "report", req.Output[0].Name)
	assert.Equal(t, "summary", req.Output[1].Name)
	assert.False(t, req.Output[0].HasData())

	require.NotNil(t, req.SystemInputRef())
	assert.Equal(t, "td-initial-values", req.SystemInputRef().Name)
	require.NotNil(t, req.SystemOutputRef())
	assert.Equal(t, "td-initial-values", req.SystemOutputRef().Name)
}

func TestParseRequest_UnknownVersion(t *testing.T) {
	path := writeRequest(t, "!V1\ninfo:\n  execution_id: exec-001\n")

	_, err := ParseRequest(path)
	require.Error(t, err)
	assert.True(t, IsUnknownVersion(err), "error = %v", err)

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, path, ee.Path)
}

func TestParseRequest_UntaggedRoot(t *testing.T) {
	_, err := ParseRequest(writeRequest(t, "info:\n  execution_id: exec-001\n"))
	require.Error(t, err)
	assert.True(t, IsUnknownVersion(err), "error = %v", err)
}

func TestParseRequest_MissingName(t *testing.T) {
	fixture := "!V2\ninput:\n  - !Table\n    collection: crm\n"
	_, err := ParseRequest(writeRequest(t, fixture))
	require.Error(t, err)
	assert.True(t, IsMissingName(err), "error = %v", err)
}

func TestParseRequest_UnknownEntryTag(t *testing.T) {
	fixture := "!V2\ninput:\n  - !Blob\n    name: users\n"
	_, err := ParseRequest(writeRequest(t, fixture))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeUnknownTag, ee.Code)
}

func TestParseRequest_EmptyVersionSet(t *testing.T) {
	fixture := "!V2\ninput:\n  - !TableVersions []\n"
	_, err := ParseRequest(writeRequest(t, fixture))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeMalformed, ee.Code)
}

func TestParseRequest_VersionSetRejectsNonTable(t *testing.T) {
	fixture := "!V2\ninput:\n  - !TableVersions\n    - !Blob\n      name: x\n"
	_, err := ParseRequest(writeRequest(t, fixture))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeUnknownTag, ee.Code)
}

func TestParseRequest_OutputRejectsVersionSets(t *testing.T) {
	fixture := "!V2\noutput:\n  - !TableVersions\n    - !Table\n      name: x\n"
	_, err := ParseRequest(writeRequest(t, fixture))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeUnknownTag, ee.Code)
}

func TestSetWork_ExactlyOnce(t *testing.T) {
	req, err := ParseRequest(writeRequest(t, requestFixture))
	require.NoError(t, err)

	assert.Empty(t, req.Work())
	require.NoError(t, req.SetWork("work-token-1"))
	assert.Equal(t, "work-token-1", req.Work())

	err = req.SetWork("work-token-2")
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeWorkAlreadySet, ee.Code)
	assert.Equal(t, "work-token-1", req.Work(), "failed set must not overwrite")
}

func TestSetWork_ParsedTokenCountsAsSet(t *testing.T) {
	fixture := requestFixture + "work: preset-token\n"
	req, err := ParseRequest(writeRequest(t, fixture))
	require.NoError(t, err)

	assert.Equal(t, "preset-token", req.Work())
	assert.Error(t, req.SetWork("other"))
}

func TestRequestWriteFile_RoundTrip(t *testing.T) {
	req, err := ParseRequest(writeRequest(t, requestFixture))
	require.NoError(t, err)
	require.NoError(t, req.SetWork("wk-1"))

	path := filepath.Join(t.TempDir(), "echo.yaml")
	require.NoError(t, req.WriteFile(path))

	got, err := ParseRequest(path)
	require.NoError(t, err)

	assert.Equal(t, req.ExecutionID, got.ExecutionID)
	assert.Equal(t, req.FunctionBundle, got.FunctionBundle)
	assert.Equal(t, req.Input, got.Input)
	assert.Equal(t, req.Output, got.Output)
	assert.Equal(t, req.SystemInput, got.SystemInput)
	assert.Equal(t, req.SystemOutput, got.SystemOutput)
	assert.Equal(t, "wk-1", got.Work())
}
