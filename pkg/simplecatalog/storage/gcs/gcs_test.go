package gcs

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name is required")
}

func TestNew_EmulatorEndpoint(t *testing.T) {
	backend, err := New(context.Background(), Config{
		Bucket:   "catalog",
		Endpoint: "http://localhost:4443/storage/v1/",
	})
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, "catalog", backend.name)
	assert.NotNil(t, backend.bucket)
}

func TestToMeta(t *testing.T) {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	meta := toMeta(&storage.ObjectAttrs{
		Name:        "music/track.flac",
		Size:        2048,
		ContentType: "audio/flac",
		Updated:     updated,
		Etag:        "abc",
	})

	assert.Equal(t, "music/track.flac", meta.Key)
	assert.Equal(t, int64(2048), meta.Size)
	assert.Equal(t, "audio/flac", meta.ContentType)
	assert.Equal(t, updated, meta.UpdatedAt)
	assert.Equal(t, "abc", meta.ETag)
}
