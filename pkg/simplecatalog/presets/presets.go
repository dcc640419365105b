// Package presets builds ready-to-use catalog services for common setups.
package presets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	memorycache "github.com/tendant/simple-catalog/pkg/simplecatalog/cache/memory"
	fsstorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/fs"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

// NewDevelopment creates a service configured for local development.
//
// Features:
//   - Filesystem storage at ./dev-data/ (persistent across restarts)
//   - In-process TTL cache
//
// Returns the service, a cleanup function that closes the service and
// removes the storage directory, and an error if setup fails.
//
// Example:
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (simplecatalog.Service, func(), error) {
	cfg := &devConfig{
		storageDir: "./dev-data",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	fsBackend, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.storageDir})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	options := []simplecatalog.Option{
		simplecatalog.WithBlobStore("fs", fsBackend),
		simplecatalog.WithCache(memorycache.New(memorycache.DefaultCleanupInterval)),
	}
	options = append(options, cfg.extra...)

	svc, err := simplecatalog.New(options...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Close(ctx)
		os.RemoveAll(cfg.storageDir)
	}

	return svc, cleanup, nil
}

// NewTesting creates a service for unit and integration tests: in-memory
// storage, no cache, closed automatically via t.Cleanup.
func NewTesting(t testing.TB, opts ...TestingOption) simplecatalog.Service {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	store := memorystorage.New()
	for key, content := range cfg.fixtures {
		params := simplecatalog.UploadParams{ObjectKey: key, MimeType: "application/json"}
		if err := store.UploadWithParams(context.Background(), strings.NewReader(content), params); err != nil {
			t.Fatalf("failed to seed fixture %s: %v", key, err)
		}
	}

	options := append([]simplecatalog.Option{simplecatalog.WithBlobStore("memory", store)}, cfg.extra...)
	svc, err := simplecatalog.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	t.Cleanup(func() {
		svc.Close(context.Background())
	})

	return svc
}

type devConfig struct {
	storageDir string
	extra      []simplecatalog.Option
}

// DevelopmentOption configures NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the storage directory
func WithDevStorage(dir string) DevelopmentOption {
	return func(c *devConfig) {
		c.storageDir = dir
	}
}

// WithDevOptions passes extra service options
func WithDevOptions(opts ...simplecatalog.Option) DevelopmentOption {
	return func(c *devConfig) {
		c.extra = append(c.extra, opts...)
	}
}

type testConfig struct {
	fixtures map[string]string
	extra    []simplecatalog.Option
}

// TestingOption configures NewTesting
type TestingOption func(*testConfig)

// WithFixture seeds the store with an object before the service starts,
// for example an index file or an orphan blob.
func WithFixture(key, content string) TestingOption {
	return func(c *testConfig) {
		if c.fixtures == nil {
			c.fixtures = map[string]string{}
		}
		c.fixtures[key] = content
	}
}

// WithTestOptions passes extra service options
func WithTestOptions(opts ...simplecatalog.Option) TestingOption {
	return func(c *testConfig) {
		c.extra = append(c.extra, opts...)
	}
}
