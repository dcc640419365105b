package simplecatalog

import (
	"encoding/json"
	"time"
)

// TypeTag identifies a catalog type. The set is closed: every tag has exactly
// one entry in the type table below.
type TypeTag string

// Type tag constants (typed).
const (
	TypeSong    TypeTag = "song"
	TypePattern TypeTag = "pattern"
	TypeBank    TypeTag = "bank"
	TypeSample  TypeTag = "sample"
	TypeMusic   TypeTag = "music"
	TypeNote    TypeTag = "note"
	TypeShader  TypeTag = "shader"
	TypeImage   TypeTag = "image"
	TypeDefault TypeTag = "default"
)

// Content disposition hints used by downloads
const (
	DispositionAttachment = "attachment"
	DispositionInline     = "inline"
)

// TypeConfig is the static storage layout of one type.
type TypeConfig struct {
	Tag      TypeTag
	Folder   string // folder prefix, with trailing slash
	IndexKey string // key of the type's index file

	// Structured types store JSON payloads named {id}.json
	Structured bool
	// Syncable types take part in the multi-type sync pass
	Syncable bool
	// Listable types are included when listing without a type filter
	Listable bool
	// ContentExtensions restricts which blobs count as content during sync.
	// Empty means every blob in the folder.
	ContentExtensions []string
	// UploadExtensions restricts accepted upload filenames. Empty means any.
	UploadExtensions []string
	Disposition      string
}

var audioExtensions = []string{".flac", ".wav", ".mp3", ".ogg"}

var typeTable = []TypeConfig{
	{Tag: TypeSong, Folder: "songs/", IndexKey: "songs/_songs.json", Structured: true, Syncable: true, Listable: true, Disposition: DispositionAttachment},
	{Tag: TypePattern, Folder: "patterns/", IndexKey: "patterns/_patterns.json", Structured: true, Syncable: true, Listable: true, Disposition: DispositionAttachment},
	{Tag: TypeBank, Folder: "banks/", IndexKey: "banks/_banks.json", Structured: true, Syncable: true, Listable: true, Disposition: DispositionAttachment},
	{Tag: TypeSample, Folder: "samples/", IndexKey: "samples/_samples.json", Syncable: true, Listable: true, Disposition: DispositionAttachment},
	{Tag: TypeMusic, Folder: "music/", IndexKey: "music/_music.json", Syncable: true, Listable: true, ContentExtensions: audioExtensions, UploadExtensions: audioExtensions, Disposition: DispositionInline},
	{Tag: TypeNote, Folder: "notes/", IndexKey: "notes/_notes.json", Syncable: true, Disposition: DispositionAttachment},
	{Tag: TypeShader, Folder: "shaders/", IndexKey: "shaders/_shaders.json", Syncable: true, Listable: true, UploadExtensions: []string{".wgsl"}, Disposition: DispositionInline},
	{Tag: TypeImage, Folder: "images/", IndexKey: "images/_images.json", Syncable: true, Disposition: DispositionInline},
	{Tag: TypeDefault, Folder: "misc/", IndexKey: "misc/_misc.json", Disposition: DispositionAttachment},
}

// AllTypes returns every type in table order.
func AllTypes() []TypeTag {
	tags := make([]TypeTag, 0, len(typeTable))
	for _, c := range typeTable {
		tags = append(tags, c.Tag)
	}
	return tags
}

// Config returns the storage layout of t.
func (t TypeTag) Config() (TypeConfig, bool) {
	for _, c := range typeTable {
		if c.Tag == t {
			return c, true
		}
	}
	return TypeConfig{}, false
}

// MustConfig is Config for tags known to be valid.
func (t TypeTag) MustConfig() TypeConfig {
	c, ok := t.Config()
	if !ok {
		panic("simplecatalog: unknown type tag " + string(t))
	}
	return c
}

func (t TypeTag) String() string {
	return string(t)
}

// ParseTypeTag parses s as a known type tag.
func ParseTypeTag(s string) (TypeTag, bool) {
	t := TypeTag(s)
	if _, ok := t.Config(); !ok {
		return "", false
	}
	return t, true
}

// ResolveTypeTag parses s, falling back to fallback for empty or unknown input.
func ResolveTypeTag(s string, fallback TypeTag) TypeTag {
	if t, ok := ParseTypeTag(s); ok {
		return t
	}
	return fallback
}

// TypeForFolder maps a folder name ("songs", "songs/") or a type name ("song")
// to its type.
func TypeForFolder(name string) (TypeTag, bool) {
	if t, ok := ParseTypeTag(name); ok {
		return t, true
	}
	for _, c := range typeTable {
		if c.Folder == name || c.Folder == name+"/" {
			return c.Tag, true
		}
	}
	return "", false
}

// SortBy is a sortable record field.
type SortBy string

// Sort field constants (typed).
const (
	SortByDate       SortBy = "date"
	SortByRating     SortBy = "rating"
	SortByName       SortBy = "name"
	SortByLastPlayed SortBy = "last_played"
	SortByGenre      SortBy = "genre"
)

// Valid reports whether s is a known sort field.
func (s SortBy) Valid() bool {
	switch s {
	case SortByDate, SortByRating, SortByName, SortByLastPlayed, SortByGenre:
		return true
	}
	return false
}

// DateLayout is the layout of Record.Date.
const DateLayout = "2006-01-02"

// Record is one metadata entry of an index file.
//
// Fields that are not modelled here (for example "url", "size" or "category")
// are kept in Extra and written back unchanged.
type Record struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Date        string   `json:"date"`
	Type        TypeTag  `json:"type"`
	Description string   `json:"description"`
	Filename    string   `json:"filename"`
	Rating      *int     `json:"rating"`
	Genre       *string  `json:"genre"`
	LastPlayed  *string  `json:"last_played"`
	Tags        []string `json:"tags"`

	// Shader only
	Stars       *float64 `json:"stars,omitempty"`
	RatingCount *int     `json:"rating_count,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var recordFields = map[string]struct{}{
	"id": {}, "name": {}, "author": {}, "date": {}, "type": {}, "description": {},
	"filename": {}, "rating": {}, "genre": {}, "last_played": {}, "tags": {},
	"stars": {}, "rating_count": {},
}

type recordAlias Record

// MarshalJSON writes the modelled fields plus any preserved extra fields.
func (r Record) MarshalJSON() ([]byte, error) {
	alias := recordAlias(r)
	if alias.Tags == nil {
		alias.Tags = []string{}
	}
	data, err := json.Marshal(alias)
	if err != nil || len(r.Extra) == 0 {
		return data, err
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := recordFields[k]; known {
			continue
		}
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON reads the modelled fields and keeps the rest in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var alias recordAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for k, v := range fields {
		if _, known := recordFields[k]; known {
			continue
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]json.RawMessage)
		}
		alias.Extra[k] = v
	}
	alias.Tags = normalizeTags(alias.Tags)
	*r = Record(alias)
	return nil
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	if r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	if r.Genre != nil {
		v := *r.Genre
		c.Genre = &v
	}
	if r.LastPlayed != nil {
		v := *r.LastPlayed
		c.LastPlayed = &v
	}
	if r.Stars != nil {
		v := *r.Stars
		c.Stars = &v
	}
	if r.RatingCount != nil {
		v := *r.RatingCount
		c.RatingCount = &v
	}
	if r.Tags != nil {
		c.Tags = append([]string(nil), r.Tags...)
	}
	if r.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// ExtraString returns an extra field as a string, if it is one.
func (r Record) ExtraString(key string) string {
	raw, ok := r.Extra[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// normalizeTags drops duplicates, keeping the first occurrence.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Today formats now as a Record date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// ListFilter selects and orders records for ListRecords.
type ListFilter struct {
	// Type restricts the listing to one type. Empty lists all listable types.
	Type      TypeTag
	SortBy    SortBy
	SortDesc  bool
	Genre     string
	MinRating int
	// Limit of 0 means no limit
	Limit  int
	Offset int
}

// PatchOutcome reports whether a patch changed anything.
type PatchOutcome string

// Patch outcome constants (typed).
const (
	PatchUpdated PatchOutcome = "updated"
	PatchNoop    PatchOutcome = "no-op"
)

// PatchResult is the outcome of IndexStore.Patch.
type PatchResult struct {
	Record  Record       `json:"record"`
	Outcome PatchOutcome `json:"status"`
	// Updated lists the fields that changed, in patch field order
	Updated []string `json:"updated"`
}

// TypeReport is the sync outcome of one type.
type TypeReport struct {
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	Total   int    `json:"total"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SyncReport maps each processed type to its outcome.
type SyncReport map[TypeTag]TypeReport

// TypeHealth is the health of one type's index.
type TypeHealth struct {
	Count  int    `json:"count"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport is returned by Service.Health.
type HealthReport struct {
	Status  string                 `json:"status"`
	Storage map[TypeTag]TypeHealth `json:"storage"`
}

// FolderEntry is one blob of a direct folder listing.
type FolderEntry struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Updated  time.Time `json:"updated"`
}

// FolderListing is returned by Service.ListFolder.
type FolderListing struct {
	Folder string        `json:"folder"`
	Count  int           `json:"count"`
	Files  []FolderEntry `json:"files"`
}
