package table

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// StageName returns the staging table name for a run-unique fragment
// index. Staged inputs and importer results are always created under
// this naming scheme; outputs get their declared name at publish time.
func StageName(idx uint64) string {
	return fmt.Sprintf("stage_%06d", idx)
}

// ResolveURI turns a table location URI into a local filesystem path.
// Accepted forms are plain paths and file:// URIs; any other scheme is
// an error at this layer (object-store URIs are handled by transports
// before staging).
func ResolveURI(uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("empty location uri")
	}
	if !strings.Contains(uri, "://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse location uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported location scheme %q in %q", u.Scheme, uri)
	}
	return u.Path, nil
}

// StageRef copies the named table out of the database a table reference
// points at into the run's staging store, under a fresh stage name.
//
// The referenced file must exist: a reference that carries a location
// URI promises materialized data, so a missing file or missing table is
// a staging failure, never an empty result.
func StageRef(ctx context.Context, dst *Store, uri, name string, idx uint64) (*Fragment, error) {
	path, err := ResolveURI(uri)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", name, err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stage %q: location %q: %w", name, uri, err)
	}

	src, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", name, err)
	}
	defer src.Close()

	frag, err := src.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("stage %q from %q: %w", name, uri, err)
	}

	staged, err := dst.Create(ctx, StageName(idx), idx, frag.Columns())
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", name, err)
	}
	rows, err := frag.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("stage %q: %w", name, err)
	}
	if err := staged.Append(ctx, rows...); err != nil {
		return nil, fmt.Errorf("stage %q: %w", name, err)
	}
	return staged, nil
}
