package simplecatalog

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

// service implements the Service interface
type service struct {
	backend   string
	store     BlobStore
	cache     Cache
	logger    *slog.Logger
	metrics   *Metrics
	ioWorkers int
	sniffers  map[TypeTag]MetadataSniffer
	fallback  TypeTag
	listTTL   time.Duration
	shaderTTL time.Duration
	now       func() time.Time
	newID     func() string

	pool       *IOPool
	guard      *Guard
	gw         *Gateway
	index      *IndexStore
	reconciler *Reconciler
	transfer   *Transfer
	shaders    *Shaders

	closeOnce sync.Once
	closeErr  error
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithBlobStore sets the storage backend. name identifies it in errors.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		s.backend = name
		s.store = store
	}
}

// WithCache sets the query cache. Without one, every read hits storage.
func WithCache(cache Cache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *Metrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// WithIOWorkers bounds concurrent backend calls
func WithIOWorkers(n int) Option {
	return func(s *service) {
		s.ioWorkers = n
	}
}

// WithSniffer registers the metadata sniffer used for orphans of type t
func WithSniffer(t TypeTag, sniffer MetadataSniffer) Option {
	return func(s *service) {
		if s.sniffers == nil {
			s.sniffers = DefaultSniffers()
		}
		s.sniffers[t] = sniffer
	}
}

// WithFallbackType sets the type used for payloads naming an unknown type
func WithFallbackType(t TypeTag) Option {
	return func(s *service) {
		s.fallback = t
	}
}

// WithListTTL sets how long ListRecords results are cached
func WithListTTL(d time.Duration) Option {
	return func(s *service) {
		s.listTTL = d
	}
}

// WithShaderTTL sets how long shader catalog listings are cached
func WithShaderTTL(d time.Duration) Option {
	return func(s *service) {
		s.shaderTTL = d
	}
}

// WithClock overrides the time source used for dates and play timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithIDGenerator overrides how new record ids are generated
func WithIDGenerator(newID func() string) Option {
	return func(s *service) {
		s.newID = newID
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		ioWorkers: DefaultIOWorkers,
		fallback:  TypeSong,
		listTTL:   DefaultListTTL,
		shaderTTL: DefaultShaderTTL,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if _, ok := s.fallback.Config(); !ok {
		return nil, fmt.Errorf("unknown fallback type %q", s.fallback)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.backend == "" {
		s.backend = "default"
	}

	s.pool = NewIOPool(s.ioWorkers)
	s.pool.metrics = s.metrics
	s.guard = NewGuard()
	s.guard.metrics = s.metrics
	s.gw = NewGateway(s.backend, s.store, s.pool)

	s.index = NewIndexStore(s.gw, s.guard, s.cache, s.logger)
	s.index.metrics = s.metrics
	s.index.cache.metrics = s.metrics
	s.index.now = s.now

	s.reconciler = NewReconciler(s.index, s.sniffers, s.logger)
	s.reconciler.newID = s.newID

	s.transfer = NewTransfer(s.gw, s.index, s.logger)
	s.transfer.newID = s.newID

	s.shaders = NewShaders(s.gw, s.index, s.shaderTTL)

	return s, nil
}

// Index queries

func (s *service) ListRecords(ctx context.Context, filter ListFilter) ([]Record, error) {
	if filter.SortBy == "" {
		filter.SortBy = SortByDate
	}
	if !filter.SortBy.Valid() {
		return nil, validationErrorf("unknown sort field %q", filter.SortBy)
	}
	if filter.MinRating < 0 || filter.MinRating > 10 {
		return nil, validationErrorf("min_rating must be between 0 (no filter) and 10, got %d", filter.MinRating)
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, validationErrorf("limit and offset must not be negative")
	}

	types := listableTypes()
	if filter.Type != "" {
		if _, ok := filter.Type.Config(); !ok {
			filter.Type = TypeDefault
		}
		types = []TypeTag{filter.Type}
	}

	key := libraryKey(filter)
	var cached []Record
	if s.index.cache.get(ctx, key, &cached) {
		return cached, nil
	}

	perType := make([][]Record, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		g.Go(func() error {
			records, err := s.index.List(gctx, t)
			if err != nil {
				return err
			}
			perType[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Record, 0)
	for _, records := range perType {
		for _, r := range records {
			if filter.Genre != "" && (r.Genre == nil || *r.Genre != filter.Genre) {
				continue
			}
			if filter.MinRating > 0 && (r.Rating == nil || *r.Rating < filter.MinRating) {
				continue
			}
			results = append(results, r)
		}
	}

	sortRecords(results, filter.SortBy, filter.SortDesc)
	results = paginate(results, filter.Offset, filter.Limit)

	s.index.cache.set(ctx, key, results, s.listTTL)
	return results, nil
}

func (s *service) GetRecord(ctx context.Context, t TypeTag, id string) (*Record, error) {
	for _, candidate := range s.lookupTypes(t) {
		rec, err := s.index.Get(ctx, candidate, id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, &RecordError{Type: t, ID: id, Op: "get", Err: ErrNotFound}
}

func (s *service) GetItemData(ctx context.Context, t TypeTag, id string) (json.RawMessage, error) {
	keys := objectkey.NewJSONDataGenerator()
	for _, candidate := range s.lookupTypes(t) {
		cfg := candidate.MustConfig()
		data, err := s.gw.GetText(ctx, objectkey.Key(cfg.Folder, keys.GenerateFilename(id, nil)))
		if err == nil {
			return json.RawMessage(data), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, &RecordError{Type: candidate, ID: id, Op: "get_data", Err: err}
		}
	}
	return nil, &RecordError{Type: t, ID: id, Op: "get_data", Err: ErrNotFound}
}

// Index mutations

func (s *service) UpsertRecord(ctx context.Context, payload ItemPayload) (*Record, error) {
	if err := validateStruct(payload); err != nil {
		return nil, err
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(payload.Data, &data); err != nil || data == nil {
		return nil, validationErrorf("data must be a JSON object")
	}

	t := ResolveTypeTag(payload.Type, s.fallback)
	cfg := t.MustConfig()
	id := payload.ID
	if id == "" {
		id = s.newID()
	}

	rec := Record{
		ID:          id,
		Name:        payload.Name,
		Author:      payload.Author,
		Date:        payload.Date,
		Type:        t,
		Description: payload.Description,
		Filename:    objectkey.NewJSONDataGenerator().GenerateFilename(id, nil),
		Rating:      payload.Rating,
		Genre:       payload.Genre,
		Tags:        normalizeTags(payload.Tags),
	}
	if rec.Date == "" && payload.ID != "" {
		existing, err := s.index.Get(ctx, t, id)
		switch {
		case err == nil:
			rec.Date = existing.Date
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}
	if rec.Date == "" {
		rec.Date = Today(s.now())
	}

	meta, err := json.Marshal(rec)
	if err != nil {
		return nil, &RecordError{Type: t, ID: id, Op: "encode", Err: err}
	}
	data[cloudMetaKey] = meta
	body, err := json.Marshal(data)
	if err != nil {
		return nil, &RecordError{Type: t, ID: id, Op: "encode", Err: err}
	}
	if err := s.gw.PutText(ctx, objectkey.Key(cfg.Folder, rec.Filename), body, "application/json"); err != nil {
		return nil, &RecordError{Type: t, ID: id, Op: "write_data", Err: err}
	}

	return s.index.Upsert(ctx, t, rec)
}

func (s *service) PatchRecord(ctx context.Context, t TypeTag, id string, patch Patch) (*PatchResult, error) {
	if t == "" {
		t = s.fallback
	}
	return s.index.Patch(ctx, t, id, patch)
}

func (s *service) RecordPlay(ctx context.Context, t TypeTag, id string) (*Record, error) {
	if t == "" {
		t = TypeSample
	}
	res, err := s.index.Patch(ctx, t, id, Patch{LastPlayed: Set(s.now().UTC().Format(time.RFC3339))})
	if err != nil {
		return nil, err
	}
	return &res.Record, nil
}

// Binary transfer

func (s *service) StreamUpload(ctx context.Context, t TypeTag, r io.Reader, meta UploadMeta) (*Record, error) {
	return s.transfer.Upload(ctx, t, r, meta)
}

func (s *service) StreamDownload(ctx context.Context, t TypeTag, id string) (*Download, error) {
	return s.transfer.Download(ctx, t, id)
}

// Reconciliation

func (s *service) RunSync(ctx context.Context) (SyncReport, error) {
	return s.reconciler.RunSync(ctx)
}

func (s *service) SyncType(ctx context.Context, t TypeTag) (*TypeReport, error) {
	return s.reconciler.SyncType(ctx, t)
}

// Shader operations

func (s *service) Rate(ctx context.Context, id string, vote float64) (*Record, error) {
	return s.shaders.Rate(ctx, id, vote)
}

func (s *service) ShaderMeta(ctx context.Context, id string) (*Record, error) {
	return s.shaders.Meta(ctx, id)
}

func (s *service) UpdateShader(ctx context.Context, id string, description *string, tags []string) (*Record, error) {
	return s.shaders.Update(ctx, id, description, tags)
}

func (s *service) ShaderCode(ctx context.Context, id string) (*ShaderCode, error) {
	return s.shaders.Code(ctx, id)
}

func (s *service) ListShaders(ctx context.Context, filter ShaderFilter) ([]Record, error) {
	return s.shaders.List(ctx, filter)
}

func (s *service) Categories() CategoryCatalog {
	return s.shaders.Categories()
}

// Storage inspection

func (s *service) ListFolder(ctx context.Context, folder string) (*FolderListing, error) {
	folder = strings.Trim(folder, "/")
	if folder == "" || strings.Contains(folder, "..") {
		return nil, validationErrorf("invalid folder %q", folder)
	}
	prefix := folder + "/"
	if t, ok := TypeForFolder(folder); ok {
		prefix = t.MustConfig().Folder
	}

	objects, err := s.gw.ListByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	files := make([]FolderEntry, 0, len(objects))
	for _, obj := range objects {
		name, ok := objectkey.Strip(prefix, obj.Key)
		if !ok {
			continue
		}
		files = append(files, FolderEntry{Filename: name, Size: obj.Size, Updated: obj.UpdatedAt})
	}
	return &FolderListing{Folder: prefix, Count: len(files), Files: files}, nil
}

func (s *service) Health(ctx context.Context) (*HealthReport, error) {
	var (
		mu     sync.Mutex
		status = make(map[TypeTag]TypeHealth)
		g      errgroup.Group
	)
	for _, cfg := range typeTable {
		if cfg.Tag == TypeDefault {
			continue
		}
		g.Go(func() error {
			h := TypeHealth{Status: "ok"}
			records, err := s.index.List(ctx, cfg.Tag)
			if err != nil {
				h = TypeHealth{Status: "error", Error: err.Error()}
			} else {
				h.Count = len(records)
			}
			mu.Lock()
			status[cfg.Tag] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return &HealthReport{Status: "online", Storage: status}, nil
}

// Close drains the IO pool, then closes the cache and, when it implements
// io.Closer, the blob store. Later calls return the first result.
func (s *service) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		errs := []error{s.pool.Close(ctx), s.index.cache.close()}
		if c, ok := s.store.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// lookupTypes is t alone, or every structured type when t is empty.
func (s *service) lookupTypes(t TypeTag) []TypeTag {
	if t != "" {
		if _, ok := t.Config(); ok {
			return []TypeTag{t}
		}
		return []TypeTag{s.fallback}
	}
	var types []TypeTag
	for _, c := range typeTable {
		if c.Structured {
			types = append(types, c.Tag)
		}
	}
	return types
}

func listableTypes() []TypeTag {
	var types []TypeTag
	for _, c := range typeTable {
		if c.Listable {
			types = append(types, c.Tag)
		}
	}
	return types
}

// sortRecords orders records by field. Records without a value for field
// sort last in either direction.
func sortRecords(records []Record, field SortBy, desc bool) {
	slices.SortStableFunc(records, func(a, b Record) int {
		av, aok := sortValue(a, field)
		bv, bok := sortValue(b, field)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c := compareValues(av, bv)
		if desc {
			return -c
		}
		return c
	})
}

type sortKey struct {
	s string
	n int
}

func sortValue(r Record, field SortBy) (sortKey, bool) {
	switch field {
	case SortByDate:
		return sortKey{s: r.Date}, true
	case SortByName:
		return sortKey{s: r.Name}, true
	case SortByRating:
		if r.Rating == nil {
			return sortKey{}, false
		}
		return sortKey{n: *r.Rating}, true
	case SortByLastPlayed:
		if r.LastPlayed == nil {
			return sortKey{}, false
		}
		return sortKey{s: *r.LastPlayed}, true
	case SortByGenre:
		if r.Genre == nil {
			return sortKey{}, false
		}
		return sortKey{s: *r.Genre}, true
	}
	return sortKey{}, false
}

func compareValues(a, b sortKey) int {
	if c := cmp.Compare(a.n, b.n); c != 0 {
		return c
	}
	return cmp.Compare(a.s, b.s)
}

func paginate(records []Record, offset, limit int) []Record {
	if offset >= len(records) {
		return []Record{}
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
