package simplecatalog

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog/objectkey"
)

// Vote bounds accepted by AggregateRating.
const (
	MinVote = 1.0
	MaxVote = 5.0
)

// AggregateRating folds vote into a running mean of count votes.
func AggregateRating(stars float64, count int, vote float64) (float64, int, error) {
	if !validVote(vote) {
		return stars, count, validationErrorf("vote must be between %g and %g, got %g", MinVote, MaxVote, vote)
	}
	if count < 0 {
		count = 0
	}
	mean := (stars*float64(count) + vote) / float64(count+1)
	return mean, count + 1, nil
}

// validVote rejects NaN and infinities along with out-of-range values.
func validVote(vote float64) bool {
	if math.IsNaN(vote) || math.IsInf(vote, 0) {
		return false
	}
	return vote >= MinVote && vote <= MaxVote
}

// ShaderCode is the source of a shader program.
type ShaderCode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Shaders manages shader metadata documents, ratings and the shader catalog.
type Shaders struct {
	gw    *Gateway
	index *IndexStore
	cfg   TypeConfig
	ttl   time.Duration
}

// NewShaders creates the shader operations over index. ttl bounds how long
// catalog listings are cached.
func NewShaders(gw *Gateway, index *IndexStore, ttl time.Duration) *Shaders {
	if ttl <= 0 {
		ttl = DefaultShaderTTL
	}
	return &Shaders{
		gw:    gw,
		index: index,
		cfg:   TypeShader.MustConfig(),
		ttl:   ttl,
	}
}

// Meta returns the metadata of shader id. The per-shader metadata document
// wins; without one the shader index entry is used.
func (s *Shaders) Meta(ctx context.Context, id string) (*Record, error) {
	return s.loadMeta(ctx, id)
}

// Rate adds vote to the shader's running mean. The whole read-modify-write
// runs under the guard so concurrent votes are never lost.
func (s *Shaders) Rate(ctx context.Context, id string, vote float64) (*Record, error) {
	if !validVote(vote) {
		return nil, validationErrorf("vote must be between %g and %g, got %g", MinVote, MaxVote, vote)
	}
	return s.update(ctx, id, func(rec *Record) error {
		stars, count, err := AggregateRating(*rec.Stars, *rec.RatingCount, vote)
		if err != nil {
			return err
		}
		rec.Stars = &stars
		rec.RatingCount = &count
		return nil
	})
}

// Update replaces the description and tags of a shader. A nil description
// or nil tags leaves the field unchanged.
func (s *Shaders) Update(ctx context.Context, id string, description *string, tags []string) (*Record, error) {
	return s.update(ctx, id, func(rec *Record) error {
		if description != nil {
			rec.Description = *description
		}
		if tags != nil {
			rec.Tags = normalizeTags(tags)
		}
		return nil
	})
}

// Code returns the program text of shader id.
func (s *Shaders) Code(ctx context.Context, id string) (*ShaderCode, error) {
	rec, err := s.loadMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Filename == "" {
		return nil, &RecordError{Type: TypeShader, ID: id, Op: "code", Err: fmt.Errorf("%w: no shader file recorded", ErrNotFound)}
	}
	data, err := s.gw.GetText(ctx, objectkey.Key(s.cfg.Folder, rec.Filename))
	if err != nil {
		return nil, &RecordError{Type: TypeShader, ID: id, Op: "code", Err: err}
	}
	return &ShaderCode{ID: id, Name: rec.Name, Code: string(data)}, nil
}

// List returns the shader catalog filtered by f. Results are cached.
func (s *Shaders) List(ctx context.Context, f ShaderFilter) ([]Record, error) {
	if err := validateStruct(f); err != nil {
		return nil, err
	}
	if math.IsNaN(f.MinStars) {
		return nil, validationErrorf("min_stars must be a number")
	}
	if f.Category != "" && !knownCategory(f.Category) {
		return nil, validationErrorf("unknown shader category %q", f.Category)
	}
	switch f.SortBy {
	case "":
		f.SortBy = SortByRating
	case SortByRating, SortByDate, SortByName:
	default:
		return nil, validationErrorf("unknown shader sort field %q", f.SortBy)
	}

	key := shaderListKey(f)
	var cached []Record
	if s.index.cache.get(ctx, key, &cached) {
		return cached, nil
	}

	records, err := s.index.List(ctx, TypeShader)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	match := func(Record) bool { return true }
	if f.Category != "" {
		match = categoryMatcher(f.Category)
	}
	for _, r := range records {
		if !match(r) {
			continue
		}
		if f.MinStars > 0 && starsOf(r) < f.MinStars {
			continue
		}
		out = append(out, r)
	}

	switch f.SortBy {
	case SortByRating:
		slices.SortStableFunc(out, func(a, b Record) int { return cmp.Compare(starsOf(b), starsOf(a)) })
	case SortByDate:
		slices.SortStableFunc(out, func(a, b Record) int { return cmp.Compare(b.Date, a.Date) })
	case SortByName:
		slices.SortStableFunc(out, func(a, b Record) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	}

	s.index.cache.set(ctx, key, out, s.ttl)
	return out, nil
}

// Categories returns the category hierarchy.
func (s *Shaders) Categories() CategoryCatalog {
	return CategoryCatalog{
		Groups:        CategoryGroups,
		AllCategories: slices.Clone(ShaderCategories),
	}
}

func (s *Shaders) update(ctx context.Context, id string, mutate func(*Record) error) (*Record, error) {
	if err := s.index.guard.Lock(ctx); err != nil {
		return nil, err
	}
	defer s.index.guard.Unlock()

	rec, err := s.loadMeta(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	if err := s.saveMetaLocked(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// loadMeta reads the metadata document of id, falling back to the index.
// Missing rating fields default to zero.
func (s *Shaders) loadMeta(ctx context.Context, id string) (*Record, error) {
	var rec *Record
	data, err := s.gw.GetText(ctx, objectkey.ShaderMetaKey(s.cfg.Folder, id))
	switch {
	case err == nil:
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, &RecordError{Type: TypeShader, ID: id, Op: "load_meta", Err: fmt.Errorf("%w: %v", ErrCorruptedIndex, err)}
		}
		rec = &r
	case errors.Is(err, ErrNotFound):
		records, err := s.index.load(ctx, s.cfg)
		if err != nil {
			return nil, err
		}
		i := findRecord(records, id)
		if i < 0 {
			return nil, &RecordError{Type: TypeShader, ID: id, Op: "load_meta", Err: ErrNotFound}
		}
		r := records[i]
		rec = &r
	default:
		return nil, &RecordError{Type: TypeShader, ID: id, Op: "load_meta", Err: err}
	}

	if rec.ID == "" {
		rec.ID = id
	}
	if rec.Stars == nil {
		zero := 0.0
		rec.Stars = &zero
	}
	if rec.RatingCount == nil {
		zero := 0
		rec.RatingCount = &zero
	}
	return rec, nil
}

// saveMetaLocked writes the metadata document and mirrors the rating,
// description and tags into the shader index. The caller holds the guard.
func (s *Shaders) saveMetaLocked(ctx context.Context, rec Record) error {
	if err := writeShaderMeta(ctx, s.gw, s.cfg, rec); err != nil {
		return err
	}

	records, err := s.index.load(ctx, s.cfg)
	if err != nil {
		return err
	}
	if i := findRecord(records, rec.ID); i >= 0 {
		entry := records[i].Clone()
		entry.Stars = clonePtr(rec.Stars)
		entry.RatingCount = clonePtr(rec.RatingCount)
		entry.Description = rec.Description
		entry.Tags = slices.Clone(rec.Tags)
		records[i] = entry
	} else {
		entry := rec.Clone()
		entry.Type = TypeShader
		if entry.Name == "" {
			entry.Name = rec.ID
		}
		records = append([]Record{entry}, records...)
	}
	return s.index.save(ctx, s.cfg, records)
}

func starsOf(r Record) float64 {
	if r.Stars == nil {
		return 0
	}
	return *r.Stars
}
