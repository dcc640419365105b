package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithMemoryStorage selects the in-memory blob backend
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.Storage = StorageConfig{Type: "memory"}
		return nil
	}
}

// WithFilesystemStorage selects the filesystem blob backend rooted at baseDir
func WithFilesystemStorage(baseDir string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageConfig{Type: "fs", BaseDir: baseDir}
		return nil
	}
}

// WithS3Storage selects the S3 blob backend
func WithS3Storage(bucket, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.Storage = StorageConfig{Type: "s3", Bucket: bucket, Region: region}
		return nil
	}
}

// WithS3Endpoint points the S3 backend at a compatible service such as MinIO
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		if c.Storage.Type != "s3" {
			return fmt.Errorf("S3 endpoint requires s3 storage, got: %s", c.Storage.Type)
		}
		c.Storage.Endpoint = endpoint
		c.Storage.UsePathStyle = usePathStyle
		return nil
	}
}

// WithGCSStorage selects the Google Cloud Storage blob backend
func WithGCSStorage(bucket, credentialsFile string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("GCS bucket cannot be empty")
		}
		c.Storage = StorageConfig{Type: "gcs", Bucket: bucket, CredentialsFile: credentialsFile}
		return nil
	}
}

// WithCache selects the query cache; url is required for redis
func WithCache(cacheType, url string) Option {
	return func(c *ServerConfig) error {
		switch cacheType {
		case "none", "memory":
			c.Cache = CacheConfig{Type: cacheType}
		case "redis":
			if url == "" {
				return fmt.Errorf("redis cache requires a URL")
			}
			c.Cache = CacheConfig{Type: cacheType, URL: url, Namespace: c.Cache.Namespace}
		default:
			return fmt.Errorf("cache type must be 'none', 'memory' or 'redis', got: %s", cacheType)
		}
		return nil
	}
}

// WithCacheTTLs sets the listing and shader catalog cache lifetimes
func WithCacheTTLs(list, shader time.Duration) Option {
	return func(c *ServerConfig) error {
		c.ListCacheTTL = list
		c.ShaderCacheTTL = shader
		return nil
	}
}

// WithIOWorkers bounds concurrent backend calls
func WithIOWorkers(n int) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("io workers must be positive, got: %d", n)
		}
		c.IOWorkers = n
		return nil
	}
}

// WithFallbackType sets the type used for upserts naming no known type
func WithFallbackType(t string) Option {
	return func(c *ServerConfig) error {
		c.FallbackType = t
		return nil
	}
}

// WithLogging sets the log format and level
func WithLogging(format, level string) Option {
	return func(c *ServerConfig) error {
		c.LogFormat = format
		c.LogLevel = level
		return nil
	}
}

// WithAllowedOrigins sets the CORS origins
func WithAllowedOrigins(origins ...string) Option {
	return func(c *ServerConfig) error {
		c.AllowedOrigins = origins
		return nil
	}
}
