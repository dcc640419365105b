package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvStorageURL(t *testing.T) {
	tests := []struct {
		name       string
		storageURL string
		want       StorageConfig
		wantError  bool
	}{
		{"empty defaults to memory", "", StorageConfig{Type: "memory"}, false},
		{"memory keyword", "memory", StorageConfig{Type: "memory"}, false},
		{"memory URL", "memory://", StorageConfig{Type: "memory"}, false},
		{"filesystem URL", "file:///var/data", StorageConfig{Type: "fs", BaseDir: "/var/data"}, false},
		{"S3 URL", "s3://my-bucket", StorageConfig{Type: "s3", Bucket: "my-bucket", Region: "us-east-1"}, false},
		{
			"S3 URL with params",
			"s3://assets?region=eu-west-1&endpoint=http://localhost:9000&path_style=true",
			StorageConfig{Type: "s3", Bucket: "assets", Region: "eu-west-1", Endpoint: "http://localhost:9000", UsePathStyle: true},
			false,
		},
		{"GCS URL", "gs://media", StorageConfig{Type: "gcs", Bucket: "media"}, false},
		{"S3 bad path_style", "s3://b?path_style=maybe", StorageConfig{}, true},
		{"S3 missing bucket", "s3://", StorageConfig{}, true},
		{"invalid URL", "ftp://example.com", StorageConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.storageURL != "" {
				t.Setenv("STORAGE_URL", tt.storageURL)
			}

			cfg, err := Load(WithEnv())
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Storage)
		})
	}
}

func TestEnvAWSCredentials(t *testing.T) {
	t.Setenv("STORAGE_URL", "s3://my-bucket")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_REGION", "ap-south-1")

	cfg, err := Load(WithEnv())
	require.NoError(t, err)
	assert.Equal(t, "AKIA", cfg.Storage.AccessKeyID)
	assert.Equal(t, "secret", cfg.Storage.SecretAccessKey)
	assert.Equal(t, "ap-south-1", cfg.Storage.Region)
}

func TestEnvCacheURL(t *testing.T) {
	tests := []struct {
		name      string
		cacheURL  string
		wantType  string
		wantURL   string
		wantError bool
	}{
		{"empty defaults to memory", "", "memory", "", false},
		{"disabled", "none", "none", "", false},
		{"memory URL", "memory://", "memory", "", false},
		{"redis URL", "redis://localhost:6379/0", "redis", "redis://localhost:6379/0", false},
		{"unsupported", "memcached://localhost", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cacheURL != "" {
				t.Setenv("CACHE_URL", tt.cacheURL)
			}

			cfg, err := Load(WithEnv())
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, cfg.Cache.Type)
			assert.Equal(t, tt.wantURL, cfg.Cache.URL)
		})
	}
}

func TestEnvServiceSettings(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LIST_CACHE_TTL", "10s")
	t.Setenv("SHADER_CACHE_TTL", "2m")
	t.Setenv("IO_WORKERS", "8")
	t.Setenv("FALLBACK_TYPE", "sample")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(WithEnv())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 10*time.Second, cfg.ListCacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.ShaderCacheTTL)
	assert.Equal(t, 8, cfg.IOWorkers)
	assert.Equal(t, "sample", cfg.FallbackType)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"environment", "ENVIRONMENT", "staging"},
		{"fallback type", "FALLBACK_TYPE", "podcast"},
		{"log format", "LOG_FORMAT", "xml"},
		{"io workers", "IO_WORKERS", "lots"},
		{"ttl", "LIST_CACHE_TTL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(WithEnv())
			assert.Error(t, err)
		})
	}
}
