package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	memorycache "github.com/tendant/simple-catalog/pkg/simplecatalog/cache/memory"
	rediscache "github.com/tendant/simple-catalog/pkg/simplecatalog/cache/redis"
	fsstorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/fs"
	gcsstorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/gcs"
	memorystorage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
	s3storage "github.com/tendant/simple-catalog/pkg/simplecatalog/storage/s3"
)

// validate is the singleton validator instance
var validate = validator.New()

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		Storage: StorageConfig{
			Type: "memory",
		},
		Cache: CacheConfig{
			Type: "memory",
		},
		ListCacheTTL:   simplecatalog.DefaultListTTL,
		ShaderCacheTTL: simplecatalog.DefaultShaderTTL,
		IOWorkers:      simplecatalog.DefaultIOWorkers,
		FallbackType:   string(simplecatalog.TypeSong),
		LogFormat:      "text",
		LogLevel:       "info",
		AllowedOrigins: []string{"*"},
	}
}

// ServerConfig represents server configuration for the simple-catalog service
type ServerConfig struct {
	Port        string `validate:"required"`
	Environment string `validate:"oneof=development production testing"`

	Storage StorageConfig
	Cache   CacheConfig

	ListCacheTTL   time.Duration `validate:"gte=0"`
	ShaderCacheTTL time.Duration `validate:"gte=0"`
	IOWorkers      int           `validate:"min=1,max=1024"`
	FallbackType   string        `validate:"required"`

	LogFormat      string `validate:"oneof=json text"`
	LogLevel       string `validate:"oneof=debug info warn error"`
	AllowedOrigins []string
}

// StorageConfig selects and configures the blob backend
type StorageConfig struct {
	Type string `validate:"oneof=memory fs s3 gcs"`

	// fs
	BaseDir string `validate:"required_if=Type fs"`

	// s3 and gcs
	Bucket   string `validate:"required_if=Type s3,required_if=Type gcs"`
	Endpoint string

	// s3
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	CreateBucket    bool

	// gcs
	CredentialsFile string
}

// CacheConfig selects the query cache
type CacheConfig struct {
	Type      string `validate:"oneof=none memory redis"`
	URL       string `validate:"required_if=Type redis"`
	Namespace string
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if _, ok := simplecatalog.ParseTypeTag(c.FallbackType); !ok {
		return fmt.Errorf("FallbackType: unknown type %q", c.FallbackType)
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

// BuildService creates a Service instance from the server configuration.
// extra options are applied last, so callers can add a logger or metrics.
func (c *ServerConfig) BuildService(ctx context.Context, extra ...simplecatalog.Option) (simplecatalog.Service, error) {
	store, err := c.buildStorageBackend(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend %s: %w", c.Storage.Type, err)
	}
	cache, err := c.buildCache()
	if err != nil {
		return nil, fmt.Errorf("failed to build cache %s: %w", c.Cache.Type, err)
	}

	options := []simplecatalog.Option{
		simplecatalog.WithBlobStore(c.Storage.Type, store),
		simplecatalog.WithIOWorkers(c.IOWorkers),
		simplecatalog.WithFallbackType(simplecatalog.TypeTag(c.FallbackType)),
		simplecatalog.WithListTTL(c.ListCacheTTL),
		simplecatalog.WithShaderTTL(c.ShaderCacheTTL),
	}
	if cache != nil {
		options = append(options, simplecatalog.WithCache(cache))
	}
	options = append(options, extra...)

	return simplecatalog.New(options...)
}

// buildStorageBackend creates a BlobStore based on the storage configuration
func (c *ServerConfig) buildStorageBackend(ctx context.Context) (simplecatalog.BlobStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: c.Storage.BaseDir})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.Storage.Region,
			Bucket:                 c.Storage.Bucket,
			AccessKeyID:            c.Storage.AccessKeyID,
			SecretAccessKey:        c.Storage.SecretAccessKey,
			Endpoint:               c.Storage.Endpoint,
			UsePathStyle:           c.Storage.UsePathStyle,
			CreateBucketIfNotExist: c.Storage.CreateBucket,
		})

	case "gcs":
		return gcsstorage.New(ctx, gcsstorage.Config{
			Bucket:          c.Storage.Bucket,
			CredentialsFile: c.Storage.CredentialsFile,
			Endpoint:        c.Storage.Endpoint,
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.Storage.Type)
	}
}

// buildCache returns nil when caching is disabled
func (c *ServerConfig) buildCache() (simplecatalog.Cache, error) {
	switch c.Cache.Type {
	case "none":
		return nil, nil
	case "memory":
		return memorycache.New(memorycache.DefaultCleanupInterval), nil
	case "redis":
		return rediscache.New(rediscache.Config{URL: c.Cache.URL, Namespace: c.Cache.Namespace})
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
}

// Logger builds a logger writing to w in the configured format and level.
func (c *ServerConfig) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
