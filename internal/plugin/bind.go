package plugin

import (
	"fmt"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/importer"
	"github.com/tabsdata/td-go/internal/worker"
)

// Name is the registration name of the built-in object-store plugins.
// Declarations reference it via `plugin: "s3"` and `destination: "s3"`;
// file sources reach the transport through s3:// URIs.
const Name = "s3"

// Bind wires the object-store plugins into the worker from the
// environment. When no store is configured nothing is registered and
// s3:// URIs stay rejected; a partially configured store is an error,
// never a silent skip.
func Bind(w *worker.Worker) error {
	if !Enabled() {
		return nil
	}
	cfg, err := ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("object store config: %w", err)
	}
	client, err := NewObjectStoreClient(cfg)
	if err != nil {
		return fmt.Errorf("object store client: %w", err)
	}

	if w.Transports == nil {
		w.Transports = make(map[string]importer.Transport)
	}
	w.Transports[Name] = ObjectStoreTransport{Client: client}

	if cfg.Bucket == "" {
		return nil
	}
	if w.SourcePlugins == nil {
		w.SourcePlugins = make(map[string]dispatch.SourcePlugin)
	}
	w.SourcePlugins[Name] = ObjectStoreSource{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix}
	if w.Destinations == nil {
		w.Destinations = make(map[string]dispatch.DestinationPlugin)
	}
	w.Destinations[Name] = ObjectStoreDestination{Client: client, Bucket: cfg.Bucket, Prefix: cfg.Prefix}
	return nil
}
