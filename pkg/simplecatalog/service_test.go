package simplecatalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	memorycache "github.com/tendant/simple-catalog/pkg/simplecatalog/cache/memory"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/storage/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...simplecatalog.Option) (simplecatalog.Service, *memory.Backend) {
	t.Helper()

	store := memory.New()
	n := 0
	base := []simplecatalog.Option{
		simplecatalog.WithBlobStore("memory", store),
		simplecatalog.WithClock(func() time.Time { return testNow }),
		simplecatalog.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	}
	svc, err := simplecatalog.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc, store
}

func seed(t *testing.T, store *memory.Backend, key, content string) {
	t.Helper()
	err := store.UploadWithParams(context.Background(), bytes.NewReader([]byte(content)), simplecatalog.UploadParams{ObjectKey: key})
	require.NoError(t, err)
}

func read(t *testing.T, store *memory.Backend, key string) string {
	t.Helper()
	rc, err := store.Download(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestNew_RequiresBlobStore(t *testing.T) {
	_, err := simplecatalog.New()
	assert.Error(t, err)

	_, err = simplecatalog.New(
		simplecatalog.WithBlobStore("memory", memory.New()),
		simplecatalog.WithFallbackType("podcast"),
	)
	assert.Error(t, err)
}

func TestService_UpsertRecord(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	rec, err := svc.UpsertRecord(ctx, simplecatalog.ItemPayload{
		Type:   "pattern",
		Name:   "Four on the floor",
		Author: "Ada",
		Tags:   []string{"house", "house"},
		Data:   json.RawMessage(`{"steps":[1,0,0,0]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, simplecatalog.TypePattern, rec.Type)
	assert.Equal(t, "2025-06-01", rec.Date)
	assert.Equal(t, "id-1.json", rec.Filename)
	assert.Equal(t, []string{"house"}, rec.Tags)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(read(t, store, "patterns/id-1.json")), &doc))
	assert.JSONEq(t, `[1,0,0,0]`, string(doc["steps"]))
	var meta simplecatalog.Record
	require.NoError(t, json.Unmarshal(doc["_cloud_meta"], &meta))
	assert.Equal(t, "Four on the floor", meta.Name)

	data, err := svc.GetItemData(ctx, "", "id-1")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"steps"`)
}

func TestService_UpsertRecordFallbackAndDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rec, err := svc.UpsertRecord(ctx, simplecatalog.ItemPayload{
		ID: "fixed", Type: "podcast", Name: "n", Author: "a", Date: "2020-02-02", Data: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, simplecatalog.TypeSong, rec.Type)

	rec, err = svc.UpsertRecord(ctx, simplecatalog.ItemPayload{
		ID: "fixed", Name: "renamed", Author: "a", Data: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "2020-02-02", rec.Date)

	records, err := svc.ListRecords(ctx, simplecatalog.ListFilter{Type: simplecatalog.TypeSong})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "renamed", records[0].Name)
}

func TestService_UpsertRecordRejectsNonObjectData(t *testing.T) {
	svc, _ := newTestService(t)

	for _, data := range []string{`[1,2]`, `"text"`, `null`} {
		_, err := svc.UpsertRecord(context.Background(), simplecatalog.ItemPayload{
			Name: "n", Author: "a", Data: json.RawMessage(data),
		})
		assert.ErrorIs(t, err, simplecatalog.ErrValidation, data)
	}
}

func TestService_ListRecords(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(t, store, "songs/_songs.json", `[
		{"id":"s1","name":"Alpha","date":"2025-01-03","rating":7,"genre":"house"},
		{"id":"s2","name":"bravo","date":"2025-01-01","rating":9,"genre":"techno"},
		{"id":"s3","name":"Charlie","date":"2025-01-02","genre":"house"}
	]`)
	seed(t, store, "samples/_samples.json", `[{"id":"p1","name":"Kick","date":"2025-01-04","rating":5}]`)
	seed(t, store, "notes/_notes.json", `[{"id":"n1","name":"Hidden","date":"2025-01-05"}]`)

	tests := []struct {
		name   string
		filter simplecatalog.ListFilter
		want   []string
	}{
		{"all listable by date", simplecatalog.ListFilter{SortDesc: true}, []string{"p1", "s1", "s3", "s2"}},
		{"one type ascending", simplecatalog.ListFilter{Type: simplecatalog.TypeSong, SortBy: simplecatalog.SortByDate}, []string{"s2", "s3", "s1"}},
		{"rating missing sorts last", simplecatalog.ListFilter{Type: simplecatalog.TypeSong, SortBy: simplecatalog.SortByRating, SortDesc: true}, []string{"s2", "s1", "s3"}},
		{"genre filter", simplecatalog.ListFilter{Genre: "house", SortDesc: true}, []string{"s1", "s3"}},
		{"min rating", simplecatalog.ListFilter{MinRating: 6, SortDesc: true}, []string{"s1", "s2"}},
		{"pagination", simplecatalog.ListFilter{SortDesc: true, Limit: 2, Offset: 1}, []string{"s1", "s3"}},
		{"offset past end", simplecatalog.ListFilter{Offset: 10}, []string{}},
		{"unknown type maps to default", simplecatalog.ListFilter{Type: "podcast"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := svc.ListRecords(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]string, 0, len(records))
			for _, r := range records {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ListRecordsValidation(t *testing.T) {
	svc, _ := newTestService(t)

	for _, f := range []simplecatalog.ListFilter{
		{SortBy: "size"},
		{MinRating: 11},
		{Limit: -1},
		{MinRating: -1},
	} {
		_, err := svc.ListRecords(context.Background(), f)
		assert.ErrorIs(t, err, simplecatalog.ErrValidation)
	}

	_, err := svc.ListRecords(context.Background(), simplecatalog.ListFilter{MinRating: 11})
	assert.ErrorContains(t, err, "between 0 (no filter) and 10")

	_, err = svc.ListRecords(context.Background(), simplecatalog.ListFilter{MinRating: 0})
	assert.NoError(t, err)
}

func TestService_ListRecordsCached(t *testing.T) {
	ctx := context.Background()
	cache := memorycache.New(time.Minute)
	reg := prometheus.NewRegistry()
	metrics, err := simplecatalog.NewMetrics(reg)
	require.NoError(t, err)
	svc, store := newTestService(t, simplecatalog.WithCache(cache), simplecatalog.WithMetrics(metrics))

	_, err = svc.UpsertRecord(ctx, simplecatalog.ItemPayload{Type: "bank", Name: "one", Author: "a", Data: json.RawMessage(`{}`)})
	require.NoError(t, err)

	first, err := svc.ListRecords(ctx, simplecatalog.ListFilter{Type: simplecatalog.TypeBank})
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A write behind the service's back is invisible until the entry expires.
	seed(t, store, "banks/_banks.json", `[]`)
	cached, err := svc.ListRecords(ctx, simplecatalog.ListFilter{Type: simplecatalog.TypeBank})
	require.NoError(t, err)
	assert.Len(t, cached, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("hit")))

	// A write through the service invalidates it.
	_, err = svc.UpsertRecord(ctx, simplecatalog.ItemPayload{Type: "bank", Name: "two", Author: "a", Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	fresh, err := svc.ListRecords(ctx, simplecatalog.ListFilter{Type: simplecatalog.TypeBank})
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
	assert.Equal(t, "two", fresh[0].Name)
}

func TestService_RecordPlay(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(t, store, "samples/_samples.json", `[{"id":"k","name":"Kick"}]`)

	rec, err := svc.RecordPlay(ctx, "", "k")
	require.NoError(t, err)
	require.NotNil(t, rec.LastPlayed)
	assert.Equal(t, "2025-06-01T12:00:00Z", *rec.LastPlayed)

	_, err = svc.RecordPlay(ctx, simplecatalog.TypeSample, "missing")
	assert.ErrorIs(t, err, simplecatalog.ErrNotFound)
}

func TestService_StreamRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rec, err := svc.StreamUpload(ctx, simplecatalog.TypeSample, bytes.NewReader([]byte("RIFF....")), simplecatalog.UploadMeta{
		OriginalFilename: "hat.wav",
		Author:           "Ada",
	})
	require.NoError(t, err)

	dl, err := svc.StreamDownload(ctx, simplecatalog.TypeSample, rec.ID)
	require.NoError(t, err)
	defer dl.Close()

	var buf bytes.Buffer
	_, err = dl.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....", buf.String())
	assert.Equal(t, "attachment; filename=\"hat.wav\"", dl.Disposition)
}

func TestService_SyncAndHealth(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(t, store, "songs/one.json", `{"name":"One","author":"Ada"}`)
	seed(t, store, "music/track.flac", "flac")
	seed(t, store, "images/_images.json", `"broken"`)

	report, err := svc.RunSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report[simplecatalog.TypeSong].Added)
	assert.Equal(t, 1, report[simplecatalog.TypeMusic].Added)
	assert.NotEmpty(t, report[simplecatalog.TypeImage].Error)

	song, err := svc.ListRecords(ctx, simplecatalog.ListFilter{Type: simplecatalog.TypeSong})
	require.NoError(t, err)
	require.Len(t, song, 1)
	assert.Equal(t, "One", song[0].Name)
	assert.Equal(t, "Ada", song[0].Author)

	tr, err := svc.SyncType(ctx, simplecatalog.TypeMusic)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Added)
	assert.Equal(t, 1, tr.Total)

	health, err := svc.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "online", health.Status)
	assert.Equal(t, 1, health.Storage[simplecatalog.TypeSong].Count)
	assert.Equal(t, "error", health.Storage[simplecatalog.TypeImage].Status)
	assert.NotContains(t, health.Storage, simplecatalog.TypeDefault)
}

func TestService_ListFolder(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	seed(t, store, "shaders/a.wgsl", "a")
	seed(t, store, "shaders/a/metadata.json", "{}")
	seed(t, store, "custom/readme.txt", "hi")

	listing, err := svc.ListFolder(ctx, "shaders")
	require.NoError(t, err)
	assert.Equal(t, "shaders/", listing.Folder)
	require.Equal(t, 1, listing.Count)
	assert.Equal(t, "a.wgsl", listing.Files[0].Filename)

	listing, err = svc.ListFolder(ctx, "custom")
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Count)

	_, err = svc.ListFolder(ctx, "../etc")
	assert.ErrorIs(t, err, simplecatalog.ErrValidation)
}

func TestService_CloseRejectsCalls(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Close(context.Background()))

	_, err := svc.ListRecords(context.Background(), simplecatalog.ListFilter{Type: simplecatalog.TypeSong})
	assert.Error(t, err)
}

type closingStore struct {
	*memory.Backend
	closed int
}

func (c *closingStore) Close() error {
	c.closed++
	return nil
}

func TestService_CloseReleasesStore(t *testing.T) {
	store := &closingStore{Backend: memory.New()}
	svc, err := simplecatalog.New(simplecatalog.WithBlobStore("closing", store))
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background()))
	require.NoError(t, svc.Close(context.Background()))
	assert.Equal(t, 1, store.closed)
}
