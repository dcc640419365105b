package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors the environment variables WithEnv understands. Unset
// variables leave the corresponding ServerConfig field untouched.
type envConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"`

	StorageURL         string `env:"STORAGE_URL"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION"`
	GCPCredentials     string `env:"GCP_CREDENTIALS"`

	CacheURL       string        `env:"CACHE_URL"`
	CacheNamespace string        `env:"CACHE_NAMESPACE"`
	ListCacheTTL   time.Duration `env:"LIST_CACHE_TTL"`
	ShaderCacheTTL time.Duration `env:"SHADER_CACHE_TTL"`

	IOWorkers      int      `env:"IO_WORKERS"`
	FallbackType   string   `env:"FALLBACK_TYPE"`
	LogFormat      string   `env:"LOG_FORMAT"`
	LogLevel       string   `env:"LOG_LEVEL"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:","`
}

// WithEnv applies environment variable overrides.
//
// Server:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//
// Storage:
//
//	STORAGE_URL - Storage connection string (one of):
//	              - "memory://" - In-memory storage (default)
//	              - "file:///path/to/data" - Filesystem storage
//	              - "s3://bucket?region=us-east-1&endpoint=http://localhost:9000&path_style=true"
//	              - "gs://bucket?endpoint=http://localhost:4443/storage/v1/"
//	AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION - S3 credentials
//	GCP_CREDENTIALS - Path to a service account file
//
// Cache:
//
//	CACHE_URL - "none", "memory://" (default) or "redis://host:6379/0"
//	CACHE_NAMESPACE - Redis key prefix
//	LIST_CACHE_TTL, SHADER_CACHE_TTL - Durations such as "30s" or "5m"
//
// Service:
//
//	IO_WORKERS - Concurrent backend calls (default: 20)
//	FALLBACK_TYPE - Type for upserts that name no known type (default: "song")
//	LOG_FORMAT - "text" or "json"
//	LOG_LEVEL - "debug", "info", "warn" or "error"
//	ALLOWED_ORIGINS - Comma separated CORS origins
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		setString(&c.Port, env.Port)
		setString(&c.Environment, env.Environment)

		if err := applyStorageURL(env.StorageURL, c); err != nil {
			return err
		}
		setString(&c.Storage.AccessKeyID, env.AWSAccessKeyID)
		setString(&c.Storage.SecretAccessKey, env.AWSSecretAccessKey)
		setString(&c.Storage.Region, env.AWSRegion)
		setString(&c.Storage.CredentialsFile, env.GCPCredentials)

		if err := applyCacheURL(env.CacheURL, c); err != nil {
			return err
		}
		setString(&c.Cache.Namespace, env.CacheNamespace)
		if env.ListCacheTTL > 0 {
			c.ListCacheTTL = env.ListCacheTTL
		}
		if env.ShaderCacheTTL > 0 {
			c.ShaderCacheTTL = env.ShaderCacheTTL
		}

		if env.IOWorkers > 0 {
			c.IOWorkers = env.IOWorkers
		}
		setString(&c.FallbackType, env.FallbackType)
		setString(&c.LogFormat, env.LogFormat)
		setString(&c.LogLevel, env.LogLevel)
		if len(env.AllowedOrigins) > 0 {
			c.AllowedOrigins = env.AllowedOrigins
		}
		return nil
	}
}

// applyStorageURL configures the blob backend from a storage URL
func applyStorageURL(raw string, c *ServerConfig) error {
	if raw == "" {
		return nil
	}
	if raw == "memory" || raw == "memory://" {
		c.Storage = StorageConfig{Type: "memory"}
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in STORAGE_URL")
		}
		c.Storage = StorageConfig{Type: "fs", BaseDir: path}

	case "s3":
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		storage := StorageConfig{
			Type:     "s3",
			Bucket:   u.Host,
			Region:   "us-east-1",
			Endpoint: q.Get("endpoint"),
		}
		if region := q.Get("region"); region != "" {
			storage.Region = region
		}
		if v := q.Get("path_style"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid path_style in STORAGE_URL: %w", err)
			}
			storage.UsePathStyle = b
		}
		if v := q.Get("create_bucket"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid create_bucket in STORAGE_URL: %w", err)
			}
			storage.CreateBucket = b
		}
		c.Storage = storage

	case "gs", "gcs":
		if u.Host == "" {
			return fmt.Errorf("GCS bucket name cannot be empty in STORAGE_URL")
		}
		c.Storage = StorageConfig{
			Type:     "gcs",
			Bucket:   u.Host,
			Endpoint: u.Query().Get("endpoint"),
		}

	default:
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', 's3://...' or 'gs://...')", raw)
	}
	return nil
}

// applyCacheURL configures the query cache from a cache URL
func applyCacheURL(raw string, c *ServerConfig) error {
	switch {
	case raw == "":
		return nil
	case raw == "none" || raw == "off":
		c.Cache.Type = "none"
		c.Cache.URL = ""
	case raw == "memory" || raw == "memory://":
		c.Cache.Type = "memory"
		c.Cache.URL = ""
	case strings.HasPrefix(raw, "redis://"), strings.HasPrefix(raw, "rediss://"):
		c.Cache.Type = "redis"
		c.Cache.URL = raw
	default:
		return fmt.Errorf("unsupported CACHE_URL format: %s (use 'none', 'memory://' or 'redis://...')", raw)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
