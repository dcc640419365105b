package simplecatalog

import (
	"bytes"
	"encoding/json"
	"time"
)

// Request/option structs used by Service

// ItemPayload creates or replaces a structured (JSON) item.
// An empty ID creates a new item.
type ItemPayload struct {
	ID          string          `json:"id,omitempty"`
	Type        string          `json:"type"`
	Name        string          `json:"name" validate:"required"`
	Author      string          `json:"author" validate:"required"`
	Description string          `json:"description"`
	Date        string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Rating      *int            `json:"rating" validate:"omitempty,min=1,max=10"`
	Genre       *string         `json:"genre,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	Data        json.RawMessage `json:"data" validate:"required"`
}

// UploadMeta describes a streamed binary upload.
type UploadMeta struct {
	OriginalFilename string   `validate:"required"`
	Name             string   // defaults to OriginalFilename
	Author           string   `validate:"required"`
	Description      string
	Rating           *int     `validate:"omitempty,min=1,max=10"`
	Genre            *string
	Tags             []string
	ContentType      string
}

// ShaderFilter selects shaders for ListShaders.
type ShaderFilter struct {
	Category string
	MinStars float64 `validate:"min=0,max=5"`
	SortBy   SortBy
}

// Optional is a patch field that distinguishes an absent key from an
// explicit null.
type Optional[T any] struct {
	Present bool
	Value   *T
}

// Set returns a present Optional holding v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: &v}
}

// Null returns a present Optional holding no value.
func Null[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

// UnmarshalJSON is only invoked for keys present in the input.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// Patch is a partial record update. Only present fields are applied; Tags,
// when present, replaces the whole tag set.
type Patch struct {
	Name        Optional[string]   `json:"name"`
	Author      Optional[string]   `json:"author"`
	Description Optional[string]   `json:"description"`
	Date        Optional[string]   `json:"date"`
	Rating      Optional[int]      `json:"rating"`
	Genre       Optional[string]   `json:"genre"`
	Tags        Optional[[]string] `json:"tags"`
	LastPlayed  Optional[string]   `json:"last_played"`
}

// IsEmpty reports whether no field is present.
func (p Patch) IsEmpty() bool {
	return !p.Name.Present && !p.Author.Present && !p.Description.Present &&
		!p.Date.Present && !p.Rating.Present && !p.Genre.Present &&
		!p.Tags.Present && !p.LastPlayed.Present
}

// Validate checks present fields.
func (p Patch) Validate() error {
	if p.Name.Present && (p.Name.Value == nil || *p.Name.Value == "") {
		return validationErrorf("name cannot be empty")
	}
	if p.Author.Present && (p.Author.Value == nil || *p.Author.Value == "") {
		return validationErrorf("author cannot be empty")
	}
	if p.Date.Present {
		if p.Date.Value == nil {
			return validationErrorf("date cannot be null")
		}
		if _, err := time.Parse(DateLayout, *p.Date.Value); err != nil {
			return validationErrorf("date must be YYYY-MM-DD")
		}
	}
	if p.Rating.Present && p.Rating.Value != nil {
		if r := *p.Rating.Value; r < 1 || r > 10 {
			return validationErrorf("rating must be between 1 and 10, got %d", r)
		}
	}
	return nil
}

// apply writes present fields into r and returns the names of fields whose
// value changed.
func (p Patch) apply(r *Record) []string {
	var updated []string
	setString := func(name string, o Optional[string], dst *string) {
		if !o.Present {
			return
		}
		v := ""
		if o.Value != nil {
			v = *o.Value
		}
		if *dst != v {
			*dst = v
			updated = append(updated, name)
		}
	}
	setNullable := func(name string, o Optional[string], dst **string) {
		if !o.Present || equalPtr(*dst, o.Value) {
			return
		}
		*dst = clonePtr(o.Value)
		updated = append(updated, name)
	}

	setString("name", p.Name, &r.Name)
	setString("author", p.Author, &r.Author)
	setString("description", p.Description, &r.Description)
	setString("date", p.Date, &r.Date)
	if p.Rating.Present && !equalPtr(r.Rating, p.Rating.Value) {
		r.Rating = clonePtr(p.Rating.Value)
		updated = append(updated, "rating")
	}
	setNullable("genre", p.Genre, &r.Genre)
	if p.Tags.Present {
		var tags []string
		if p.Tags.Value != nil {
			tags = *p.Tags.Value
		}
		tags = normalizeTags(tags)
		if !equalTags(r.Tags, tags) {
			r.Tags = tags
			updated = append(updated, "tags")
		}
	}
	setNullable("last_played", p.LastPlayed, &r.LastPlayed)
	return updated
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
