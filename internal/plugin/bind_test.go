package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabsdata/td-go/internal/worker"
)

func setStoreEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TD_STORE_ENDPOINT", "store.internal:9000")
	t.Setenv("TD_STORE_ACCESS_KEY", "ak")
	t.Setenv("TD_STORE_SECRET_KEY", "sk")
	t.Setenv("TD_STORE_REGION", "eu-west-1")
	t.Setenv("TD_STORE_BUCKET", "")
	t.Setenv("TD_STORE_PREFIX", "")
}

func TestBind_RegistersTransport(t *testing.T) {
	setStoreEnv(t)
	w := &worker.Worker{}

	require.NoError(t, Bind(w))
	assert.Contains(t, w.Transports, Name)
	assert.Empty(t, w.SourcePlugins, "no bucket, no named source plugin")
	assert.Empty(t, w.Destinations)
}

func TestBind_RegistersBucketPlugins(t *testing.T) {
	setStoreEnv(t)
	t.Setenv("TD_STORE_BUCKET", "landing")
	t.Setenv("TD_STORE_PREFIX", "crm")
	w := &worker.Worker{}

	require.NoError(t, Bind(w))
	assert.Contains(t, w.Transports, Name)

	src, ok := w.SourcePlugins[Name].(ObjectStoreSource)
	require.True(t, ok, "source plugin = %#v", w.SourcePlugins[Name])
	assert.Equal(t, "landing", src.Bucket)
	assert.Equal(t, "crm", src.Prefix)

	dest, ok := w.Destinations[Name].(ObjectStoreDestination)
	require.True(t, ok)
	assert.Equal(t, "landing", dest.Bucket)
}

func TestBind_UnconfiguredIsNoOp(t *testing.T) {
	t.Setenv("TD_STORE_ACCESS_KEY", "")
	w := &worker.Worker{}

	require.NoError(t, Bind(w))
	assert.Empty(t, w.Transports)
	assert.Empty(t, w.SourcePlugins)
	assert.Empty(t, w.Destinations)
}

func TestBind_PartialConfigIsError(t *testing.T) {
	t.Setenv("TD_STORE_ACCESS_KEY", "ak")
	t.Setenv("TD_STORE_SECRET_KEY", "")
	w := &worker.Worker{}

	assert.Error(t, Bind(w))
}
