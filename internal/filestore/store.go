// Package filestore defines where exported query results are written.
//
// Providers implement Store. Callers depend only on this package, never on
// a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "exports")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := filestore.PutJSON(ctx, store, cfg.Bucket, "users.json", rows)
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/koustreak/rowx/internal/errs"
)

// ContentTypeJSON is used for exported results.
const ContentTypeJSON = "application/json"

// Store is the single interface all file storage providers must implement.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources (connections, goroutines, etc.).
	Close() error

	// PutObject uploads size bytes from r to key inside bucket.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// PutJSON encodes v as indented JSON and uploads it to key inside bucket.
func PutJSON(ctx context.Context, s Store, bucket, key string, v any) (*ObjectInfo, error) {
	if key == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "export key is empty")
	}
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to encode export", err)
	}
	body = append(body, '\n')
	return s.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), ContentTypeJSON)
}
