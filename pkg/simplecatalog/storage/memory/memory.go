package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// Backend is an in-memory implementation of the simplecatalog.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]object),
	}
}

// Exists reports whether an object is stored under objectKey
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[objectKey]
	return exists, nil
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simplecatalog.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("%w: %s", simplecatalog.ErrObjectNotFound, objectKey)
	}
	return &simplecatalog.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}

// UploadWithParams stores the content read from reader
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params simplecatalog.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	contentType := params.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = object{
		data:        data,
		contentType: contentType,
		updatedAt:   time.Now().UTC(),
	}
	return nil
}

// Download downloads content directly. Stored slices are replaced, never
// mutated, so an open reader survives an overwrite.
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, fmt.Errorf("%w: %s", simplecatalog.ErrObjectNotFound, objectKey)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// List returns every object whose key starts with prefix, ordered by key
func (b *Backend) List(ctx context.Context, prefix string) ([]simplecatalog.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []simplecatalog.ObjectMeta
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, simplecatalog.ObjectMeta{
			Key:         key,
			Size:        int64(len(obj.data)),
			ContentType: obj.contentType,
			UpdatedAt:   obj.updatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Delete removes an object. The engine never deletes blobs; tests and tools
// use this to simulate out-of-band removals.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return fmt.Errorf("%w: %s", simplecatalog.ErrObjectNotFound, objectKey)
	}
	delete(b.objects, objectKey)
	return nil
}

var _ simplecatalog.BlobStore = (*Backend)(nil)
