package plugin

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tabsdata/td-go/internal/dispatch"
	"github.com/tabsdata/td-go/internal/table"
)

// NewObjectStoreClient builds a minio client from the configuration.
func NewObjectStoreClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
}

// parseBucketURI splits s3://bucket/key/path into bucket and key.
func parseBucketURI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse object uri %q: %w", uri, err)
	}
	if u.Host == "" || u.Path == "" || u.Path == "/" {
		return "", "", fmt.Errorf("object uri %q must name a bucket and key", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// ObjectStoreTransport fetches bucket objects through minio. It plugs
// into the file importer for s3:// URIs.
type ObjectStoreTransport struct {
	Client *minio.Client
}

// Fetch downloads the object behind the URI into destDir.
func (t ObjectStoreTransport) Fetch(ctx context.Context, uri string, destDir string) (string, error) {
	bucket, key, err := parseBucketURI(uri)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, path.Base(key))
	if err := t.Client.FGetObject(ctx, bucket, key, dest, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("get object %q: %w", uri, err)
	}
	return dest, nil
}

// ObjectStoreSource is a source plugin that stages every object under a
// bucket prefix. Objects are listed and downloaded in lexical key order
// so chunk order is deterministic across runs.
type ObjectStoreSource struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// Chunk downloads the matching objects into the working directory and
// returns their local paths in key order.
func (s ObjectStoreSource) Chunk(ctx context.Context, rc *dispatch.RunContext) ([]string, error) {
	var paths []string
	opts := minio.ListObjectsOptions{Prefix: s.Prefix, Recursive: true}
	for obj := range s.Client.ListObjects(ctx, s.Bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %s/%s: %w", s.Bucket, s.Prefix, obj.Err)
		}
		dest := filepath.Join(rc.WorkDir, path.Base(obj.Key))
		if err := s.Client.FGetObject(ctx, s.Bucket, obj.Key, dest, minio.GetObjectOptions{}); err != nil {
			return nil, fmt.Errorf("get object %s/%s: %w", s.Bucket, obj.Key, err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// ObjectStoreDestination is a destination plugin that uploads published
// result fragments as CSV objects under a bucket prefix.
type ObjectStoreDestination struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// Stream exports each fragment to CSV in the working directory and
// uploads it as <prefix>/<table>.csv. Nil fragments (outputs the run did
// not produce) are skipped.
func (d ObjectStoreDestination) Stream(ctx context.Context, rc *dispatch.RunContext, results ...*table.Fragment) error {
	for _, frag := range results {
		if frag == nil {
			continue
		}
		local := filepath.Join(rc.WorkDir, frag.Name()+".csv")
		if err := frag.ExportCSV(ctx, local); err != nil {
			return err
		}
		key := path.Join(d.Prefix, frag.Name()+".csv")
		if _, err := d.Client.FPutObject(ctx, d.Bucket, key, local, minio.PutObjectOptions{
			ContentType: "text/csv",
		}); err != nil {
			return fmt.Errorf("put object %s/%s: %w", d.Bucket, key, err)
		}
	}
	return nil
}
