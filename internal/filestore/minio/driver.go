// Package minio provides a MinIO / S3 implementation of filestore.Store.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "exports")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"time"

	"github.com/koustreak/rowx/internal/errs"
	"github.com/koustreak/rowx/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver is a MinIO implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if cfg.Endpoint == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "storage endpoint is empty")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, bucket: cfg.Bucket}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// --- filestore.Store implementation ---

// Ping checks that the configured bucket exists, or lists buckets when no
// bucket is configured.
func (d *Driver) Ping(ctx context.Context) error {
	if d.bucket == "" {
		if _, err := d.client.ListBuckets(ctx); err != nil {
			return mapError(err, "ping failed")
		}
		return nil
	}

	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !ok {
		return errs.New(errs.ErrKindNotFound, "bucket "+d.bucket+" does not exist")
	}
	return nil
}

// Close is a no-op for MinIO; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// PutObject uploads size bytes from r to key inside bucket.
func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	info, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, mapError(err, "failed to put object")
	}

	return &filestore.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// StatObject returns metadata for the object at key inside bucket
// without downloading its content.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	return &filestore.ObjectInfo{
		Bucket:       bucket,
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}, nil
}

// PresignGetURL returns a time-limited public download URL for the object.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}
