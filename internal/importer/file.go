package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/table"
)

// Transport moves one remote or local file into the working directory
// and returns the local path. Each Fetch is atomic from the pipeline's
// perspective: it fully succeeds or fully fails.
type Transport interface {
	Fetch(ctx context.Context, uri string, destDir string) (string, error)
}

// LocalTransport copies files reachable on the local filesystem.
type LocalTransport struct{}

// Fetch copies the file behind a path or file:// URI into destDir.
func (LocalTransport) Fetch(ctx context.Context, uri string, destDir string) (string, error) {
	path, err := table.ResolveURI(uri)
	if err != nil {
		return "", &Error{Code: ErrCodeTransportFailed, Message: err.Error()}
	}
	src, err := os.Open(path)
	if err != nil {
		return "", &Error{Code: ErrCodeTransportFailed, Message: err.Error()}
	}
	defer src.Close()

	dest := filepath.Join(destDir, filepath.Base(path))
	dst, err := os.Create(dest)
	if err != nil {
		return "", &Error{Code: ErrCodeTransportFailed, Message: err.Error()}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", &Error{Code: ErrCodeTransportFailed, Message: err.Error()}
	}
	if err := dst.Close(); err != nil {
		return "", &Error{Code: ErrCodeTransportFailed, Message: err.Error()}
	}
	return dest, nil
}

// FileSource stages one or more files as fragments, in declared URI
// order. The transport is selected per URI scheme; plain paths and
// file:// URIs use the local transport.
type FileSource struct {
	// URIs are the declared source files, order-significant.
	URIs []string

	// Transports maps URI schemes to transports. The empty scheme (and
	// "file") falls back to LocalTransport when absent.
	Transports map[string]Transport

	// List marks the slot as a list input even for a single URI.
	List bool
}

// Stage fetches and loads every declared file. The number of staged
// fragments must equal the number of declared URIs; transports that
// fail abort the slot.
func (f FileSource) Stage(ctx context.Context, rc *dispatch.RunContext) (dispatch.Slot, error) {
	if len(f.URIs) == 0 {
		return dispatch.Slot{}, &Error{Code: ErrCodeBadConfig, Message: "file source declares no uris"}
	}

	values := make([]*table.Fragment, 0, len(f.URIs))
	for _, uri := range f.URIs {
		transport, err := f.transportFor(uri)
		if err != nil {
			return dispatch.Slot{}, err
		}
		local, err := transport.Fetch(ctx, uri, rc.WorkDir)
		if err != nil {
			return dispatch.Slot{}, fmt.Errorf("fetch %q: %w", uri, err)
		}
		frag, err := table.LoadCSV(ctx, rc.Store, local, rc.Indexes.Next())
		if err != nil {
			return dispatch.Slot{}, &Error{Code: ErrCodeTransportFailed, Message: err.Error()}
		}
		values = append(values, frag)
	}
	return dispatch.Slot{Values: values, List: f.List || len(f.URIs) > 1}, nil
}

func (f FileSource) transportFor(uri string) (Transport, error) {
	scheme := ""
	if i := strings.Index(uri, "://"); i >= 0 {
		scheme = uri[:i]
	}
	if t, ok := f.Transports[scheme]; ok {
		return t, nil
	}
	if scheme == "" || scheme == "file" {
		return LocalTransport{}, nil
	}
	return nil, &Error{Code: ErrCodeBadConfig,
		Message: fmt.Sprintf("no transport registered for scheme %q", scheme)}
}
