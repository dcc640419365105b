package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// Config options for the Google Cloud Storage backend
type Config struct {
	Bucket          string // GCS bucket name
	CredentialsFile string // Optional service account key file; ADC when empty
	Endpoint        string // Optional endpoint, e.g. a local emulator
}

// Backend is a Google Cloud Storage implementation of the
// simplecatalog.BlobStore interface
type Backend struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// New creates a new GCS storage backend
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return NewWithClient(client, config.Bucket), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *storage.Client, bucket string) *Backend {
	return &Backend{
		client: client,
		bucket: client.Bucket(bucket),
		name:   bucket,
	}
}

func notFound(objectKey string, err error) error {
	return fmt.Errorf("%w: %s: %v", simplecatalog.ErrObjectNotFound, objectKey, err)
}

// Exists reports whether objectKey exists
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := b.bucket.Object(objectKey).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("gcs attrs error: %w", err)
	}
	return true, nil
}

// GetObjectMeta retrieves metadata for an object in GCS
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simplecatalog.ObjectMeta, error) {
	attrs, err := b.bucket.Object(objectKey).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, notFound(objectKey, err)
		}
		return nil, fmt.Errorf("gcs attrs error: %w", err)
	}
	return toMeta(attrs), nil
}

// UploadWithParams streams content into the object
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params simplecatalog.UploadParams) error {
	w := b.bucket.Object(params.ObjectKey).NewWriter(ctx)
	w.ContentType = params.MimeType
	if w.ContentType == "" {
		w.ContentType = "application/octet-stream"
	}

	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs close failed: %w", err)
	}
	return nil
}

// Download opens a streaming reader on the object
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	reader, err := b.bucket.Object(objectKey).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, notFound(objectKey, err)
		}
		return nil, fmt.Errorf("gcs get failed for %s: %w", objectKey, err)
	}
	return reader, nil
}

// List returns every object under prefix
func (b *Backend) List(ctx context.Context, prefix string) ([]simplecatalog.ObjectMeta, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var out []simplecatalog.ObjectMeta
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gcs list failed for %s: %w", prefix, err)
		}
		out = append(out, *toMeta(attrs))
	}
	return out, nil
}

// Close closes the GCS client.
func (b *Backend) Close() error {
	return b.client.Close()
}

func toMeta(attrs *storage.ObjectAttrs) *simplecatalog.ObjectMeta {
	return &simplecatalog.ObjectMeta{
		Key:         attrs.Name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		UpdatedAt:   attrs.Updated,
		ETag:        attrs.Etag,
	}
}

var _ simplecatalog.BlobStore = (*Backend)(nil)
