package simplecatalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// IndexStore reads and writes the per-type index files. Reads are unguarded;
// every mutation reloads the index under the Guard, applies its change and
// writes the whole file back before releasing.
type IndexStore struct {
	gw      *Gateway
	guard   *Guard
	cache   *queryCache
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewIndexStore creates an IndexStore. cache may be nil.
func NewIndexStore(gw *Gateway, guard *Guard, cache Cache, logger *slog.Logger) *IndexStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexStore{
		gw:     gw,
		guard:  guard,
		cache:  &queryCache{cache: cache, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// List returns the records of t, most recent first. A missing index file
// is an empty list.
func (s *IndexStore) List(ctx context.Context, t TypeTag) ([]Record, error) {
	cfg, ok := t.Config()
	if !ok {
		return nil, validationErrorf("unknown type %q", t)
	}
	return s.load(ctx, cfg)
}

// Get returns the record id of t.
func (s *IndexStore) Get(ctx context.Context, t TypeTag, id string) (*Record, error) {
	records, err := s.List(ctx, t)
	if err != nil {
		return nil, err
	}
	if i := findRecord(records, id); i >= 0 {
		r := records[i]
		return &r, nil
	}
	return nil, &RecordError{Type: t, ID: id, Op: "get", Err: ErrNotFound}
}

// Upsert stores rec at the head of the index of t, replacing any record with
// the same id. Replacing a record with an empty date keeps the stored date;
// a new record without a date is dated today.
func (s *IndexStore) Upsert(ctx context.Context, t TypeTag, rec Record) (*Record, error) {
	cfg, ok := t.Config()
	if !ok {
		return nil, validationErrorf("unknown type %q", t)
	}
	if rec.ID == "" {
		return nil, validationErrorf("record id is required")
	}

	if err := s.guard.Lock(ctx); err != nil {
		return nil, err
	}
	defer s.guard.Unlock()

	records, err := s.load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rec = rec.Clone()
	rec.Type = t
	rec.Tags = normalizeTags(rec.Tags)
	if i := findRecord(records, rec.ID); i >= 0 {
		if rec.Date == "" {
			rec.Date = records[i].Date
		}
		records = append(records[:i], records[i+1:]...)
	}
	if rec.Date == "" {
		rec.Date = Today(s.now())
	}

	records = append([]Record{rec}, records...)
	if err := s.save(ctx, cfg, records); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Patch applies the present fields of p to record id of t. The record keeps
// its position. A patch that changes nothing is reported as PatchNoop and
// does not write.
func (s *IndexStore) Patch(ctx context.Context, t TypeTag, id string, p Patch) (*PatchResult, error) {
	cfg, ok := t.Config()
	if !ok {
		return nil, validationErrorf("unknown type %q", t)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.guard.Lock(ctx); err != nil {
		return nil, err
	}
	defer s.guard.Unlock()

	records, err := s.load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	i := findRecord(records, id)
	if i < 0 {
		return nil, &RecordError{Type: t, ID: id, Op: "patch", Err: ErrNotFound}
	}

	rec := records[i].Clone()
	updated := p.apply(&rec)
	if len(updated) == 0 {
		return &PatchResult{Record: records[i], Outcome: PatchNoop, Updated: []string{}}, nil
	}

	records[i] = rec
	if err := s.save(ctx, cfg, records); err != nil {
		return nil, err
	}
	return &PatchResult{Record: rec, Outcome: PatchUpdated, Updated: updated}, nil
}

// load reads and decodes the index of cfg. The caller decides whether the
// guard is held.
func (s *IndexStore) load(ctx context.Context, cfg TypeConfig) ([]Record, error) {
	data, err := s.gw.GetText(ctx, cfg.IndexKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Record{}, nil
		}
		return nil, &IndexError{Type: cfg.Tag, Op: "load", Err: err}
	}
	records, err := decodeIndex(data)
	if err != nil {
		return nil, &IndexError{Type: cfg.Tag, Op: "load", Err: err}
	}
	return records, nil
}

// save writes records as the index of cfg and invalidates cached queries
// over it. The caller must hold the guard.
func (s *IndexStore) save(ctx context.Context, cfg TypeConfig, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return &IndexError{Type: cfg.Tag, Op: "encode", Err: err}
	}
	if err := s.gw.PutText(ctx, cfg.IndexKey, data, "application/json"); err != nil {
		return &IndexError{Type: cfg.Tag, Op: "save", Err: err}
	}
	s.metrics.indexWritten(cfg.Tag)
	s.cache.invalidateType(ctx, cfg.Tag)
	return nil
}

// decodeIndex accepts only a JSON array of objects.
func decodeIndex(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: payload is not a JSON array", ErrCorruptedIndex)
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedIndex, err)
	}
	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrCorruptedIndex, i)
		}
		var r Record
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrCorruptedIndex, i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

func findRecord(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}
