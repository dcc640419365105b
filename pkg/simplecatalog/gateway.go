package simplecatalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// Gateway is the engine's only path to a BlobStore. Every call takes a slot
// in the IO pool and every failure is classified: a missing key becomes
// ErrNotFound, anything else ErrTransientIO. Nothing is retried.
type Gateway struct {
	store   BlobStore
	backend string
	pool    *IOPool
}

// NewGateway wraps store. backend names the store in errors and logs.
func NewGateway(backend string, store BlobStore, pool *IOPool) *Gateway {
	if pool == nil {
		pool = NewIOPool(DefaultIOWorkers)
	}
	return &Gateway{store: store, backend: backend, pool: pool}
}

// Backend returns the backend name.
func (g *Gateway) Backend() string {
	return g.backend
}

// Exists reports whether key exists.
func (g *Gateway) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		exists, err = g.store.Exists(ctx, key)
		return err
	})
	if err != nil {
		return false, g.classify("exists", key, err)
	}
	return exists, nil
}

// GetText reads the whole object at key.
func (g *Gateway) GetText(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		rc, err := g.store.Download(ctx, key)
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err = io.ReadAll(rc)
		return err
	})
	if err != nil {
		return nil, g.classify("get", key, err)
	}
	return data, nil
}

// PutText overwrites key with content.
func (g *Gateway) PutText(ctx context.Context, key string, content []byte, contentType string) error {
	return g.Put(ctx, key, bytes.NewReader(content), contentType)
}

// Put streams r into key, overwriting it.
func (g *Gateway) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		return g.store.UploadWithParams(ctx, r, UploadParams{
			ObjectKey: key,
			MimeType:  contentType,
		})
	})
	if err != nil {
		return g.classify("put", key, err)
	}
	return nil
}

// ListByPrefix lists every object under prefix.
func (g *Gateway) ListByPrefix(ctx context.Context, prefix string) ([]ObjectMeta, error) {
	var objects []ObjectMeta
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		objects, err = g.store.List(ctx, prefix)
		return err
	})
	if err != nil {
		return nil, g.classify("list", prefix, err)
	}
	return objects, nil
}

// OpenForRead opens a streaming reader on key. Only the open call is bounded
// by the pool; the caller owns and must close the returned reader.
func (g *Gateway) OpenForRead(ctx context.Context, key string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		rc, err = g.store.Download(ctx, key)
		return err
	})
	if err != nil {
		return nil, g.classify("open", key, err)
	}
	return rc, nil
}

// Stat returns the metadata of key.
func (g *Gateway) Stat(ctx context.Context, key string) (*ObjectMeta, error) {
	var meta *ObjectMeta
	err := g.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		meta, err = g.store.GetObjectMeta(ctx, key)
		return err
	})
	if err != nil {
		return nil, g.classify("stat", key, err)
	}
	return meta, nil
}

func (g *Gateway) classify(op, key string, err error) error {
	kind := ErrTransientIO
	if errors.Is(err, ErrObjectNotFound) {
		kind = ErrNotFound
	}
	return &StorageError{
		Backend: g.backend,
		Key:     key,
		Op:      op,
		Err:     fmt.Errorf("%w: %w", kind, err),
	}
}
