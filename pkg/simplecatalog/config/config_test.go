package config

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, simplecatalog.DefaultIOWorkers, cfg.IOWorkers)
	assert.Equal(t, "song", cfg.FallbackType)
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		check   func(t *testing.T, cfg *ServerConfig)
		wantErr bool
	}{
		{
			name: "filesystem storage",
			opts: []Option{WithFilesystemStorage("/data")},
			check: func(t *testing.T, cfg *ServerConfig) {
				assert.Equal(t, StorageConfig{Type: "fs", BaseDir: "/data"}, cfg.Storage)
			},
		},
		{
			name: "s3 with endpoint",
			opts: []Option{WithS3Storage("bucket", ""), WithS3Endpoint("http://minio:9000", true)},
			check: func(t *testing.T, cfg *ServerConfig) {
				assert.Equal(t, "us-east-1", cfg.Storage.Region)
				assert.Equal(t, "http://minio:9000", cfg.Storage.Endpoint)
				assert.True(t, cfg.Storage.UsePathStyle)
			},
		},
		{
			name: "gcs storage",
			opts: []Option{WithGCSStorage("media", "/creds.json")},
			check: func(t *testing.T, cfg *ServerConfig) {
				assert.Equal(t, "gcs", cfg.Storage.Type)
				assert.Equal(t, "/creds.json", cfg.Storage.CredentialsFile)
			},
		},
		{
			name: "redis cache",
			opts: []Option{WithCache("redis", "redis://localhost:6379")},
			check: func(t *testing.T, cfg *ServerConfig) {
				assert.Equal(t, "redis", cfg.Cache.Type)
			},
		},
		{name: "empty port", opts: []Option{WithPort("")}, wantErr: true},
		{name: "endpoint without s3", opts: []Option{WithS3Endpoint("http://x", false)}, wantErr: true},
		{name: "redis without url", opts: []Option{WithCache("redis", "")}, wantErr: true},
		{name: "unknown cache", opts: []Option{WithCache("disk", "")}, wantErr: true},
		{name: "zero workers", opts: []Option{WithIOWorkers(0)}, wantErr: true},
		{name: "bad log level", opts: []Option{WithLogging("text", "trace")}, wantErr: true},
		{name: "unknown fallback", opts: []Option{WithFallbackType("video")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidateReportsField(t *testing.T) {
	cfg := defaults()
	cfg.Storage = StorageConfig{Type: "s3"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket")
}

func TestBuildService(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"memory storage and cache", nil},
		{"filesystem storage without cache", []Option{WithFilesystemStorage(t.TempDir()), WithCache("none", "")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.opts...)
			require.NoError(t, err)

			ctx := context.Background()
			svc, err := cfg.BuildService(ctx)
			require.NoError(t, err)
			defer svc.Close(ctx)

			rec, err := svc.UpsertRecord(ctx, simplecatalog.ItemPayload{
				Type:   "sample",
				Name:   "Kick",
				Author: "Studio",
				Data:   []byte(`{"bpm":120}`),
			})
			require.NoError(t, err)

			got, err := svc.GetRecord(ctx, simplecatalog.TypeSample, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, "Kick", got.Name)
		})
	}
}

func TestLogger(t *testing.T) {
	cfg, err := Load(WithLogging("json", "warn"))
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"key":"value"`)
}
