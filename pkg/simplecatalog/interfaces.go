package simplecatalog

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for storage backends.
//
// Implementations report a missing key with an error wrapping
// ErrObjectNotFound. Any other error is treated as a transient backend
// failure by the Gateway.
type BlobStore interface {
	// Exists reports whether an object exists
	Exists(ctx context.Context, objectKey string) (bool, error)

	// UploadWithParams streams content into the object at params.ObjectKey,
	// overwriting it if present
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download opens the object for streaming reads
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// List returns every object whose key starts with prefix
	List(ctx context.Context, prefix string) ([]ObjectMeta, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Cache memoizes query results. Values are opaque bytes; implementations
// must be safe for concurrent use.
type Cache interface {
	// Get returns the value stored under key, if present and not expired
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes every key
	Clear(ctx context.Context) error

	// Close releases resources held by the cache
	Close() error
}

// MetadataSniffer extracts record fields from a blob discovered during sync.
// Sniff receives the blob content and may fill name/author style fields of
// rec; returning an error leaves rec with its synthesized defaults.
type MetadataSniffer interface {
	Sniff(ctx context.Context, filename string, content []byte, rec *Record) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
