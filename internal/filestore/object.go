package filestore

import "time"

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	// Bucket the object lives in.
	Bucket string `json:"bucket"`

	// Key is the full object path within the bucket (e.g. "exports/users.json").
	Key string `json:"key"`

	// Size is the byte size of the object. -1 if unknown.
	Size int64 `json:"size"`

	// ContentType is the MIME type (e.g. "application/json").
	ContentType string `json:"content_type,omitempty"`

	// ETag is the object's entity tag / hash, as returned by the backend.
	ETag string `json:"etag,omitempty"`

	// LastModified is when the object was last written.
	LastModified time.Time `json:"last_modified,omitempty"`
}
