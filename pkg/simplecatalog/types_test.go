package simplecatalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_KeepsUnknownFields(t *testing.T) {
	in := `{"id":"m1","name":"Track","author":"A","date":"2025-01-01","type":"music","description":"",` +
		`"filename":"m1.mp3","rating":null,"genre":null,"last_played":null,"tags":[],"url":"https://x/m1.mp3","size":1024}`

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(in), &rec))
	assert.Equal(t, "Track", rec.Name)
	assert.Equal(t, "https://x/m1.mp3", rec.ExtraString("url"))
	assert.Equal(t, json.RawMessage("1024"), rec.Extra["size"])

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	genre := "dub"
	rec := Record{ID: "a", Genre: &genre, Tags: []string{"x"}, Extra: map[string]json.RawMessage{"k": json.RawMessage(`1`)}}

	c := rec.Clone()
	*c.Genre = "house"
	c.Tags[0] = "y"
	c.Extra["k"] = json.RawMessage(`2`)

	assert.Equal(t, "dub", *rec.Genre)
	assert.Equal(t, []string{"x"}, rec.Tags)
	assert.Equal(t, json.RawMessage(`1`), rec.Extra["k"])
}

func TestTypeLookups(t *testing.T) {
	tests := []struct {
		in         string
		wantParse  TypeTag
		wantOK     bool
		wantFolder TypeTag
	}{
		{"song", TypeSong, true, TypeSong},
		{"songs", "", false, TypeSong},
		{"music/", "", false, TypeMusic},
		{"podcast", "", false, ""},
		{"", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTypeTag(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantParse, got)

			folder, _ := TypeForFolder(tt.in)
			assert.Equal(t, tt.wantFolder, folder)
		})
	}

	assert.Equal(t, TypeSong, ResolveTypeTag("podcast", TypeSong))
	assert.Equal(t, TypeBank, ResolveTypeTag("bank", TypeSong))
}

func TestTypeTable(t *testing.T) {
	for _, tag := range AllTypes() {
		cfg := tag.MustConfig()
		assert.Regexp(t, `^[a-z]+/$`, cfg.Folder, tag)
		assert.Regexp(t, `^`+cfg.Folder+`_[a-z]+\.json$`, cfg.IndexKey, tag)
	}
	assert.False(t, TypeDefault.MustConfig().Syncable)
	assert.Panics(t, func() { TypeTag("nope").MustConfig() })
}

func TestPatch_UnmarshalDistinguishesNull(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"genre":null,"rating":7}`), &p))

	assert.True(t, p.Genre.Present)
	assert.Nil(t, p.Genre.Value)
	assert.True(t, p.Rating.Present)
	assert.Equal(t, 7, *p.Rating.Value)
	assert.False(t, p.Name.Present)
	assert.False(t, p.IsEmpty())
}

func TestPatch_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patch   Patch
		wantErr bool
	}{
		{"empty", Patch{}, false},
		{"rating in range", Patch{Rating: Set(10)}, false},
		{"rating cleared", Patch{Rating: Null[int]()}, false},
		{"rating too high", Patch{Rating: Set(11)}, true},
		{"empty name", Patch{Name: Set("")}, true},
		{"null author", Patch{Author: Null[string]()}, true},
		{"bad date", Patch{Date: Set("14/03/2025")}, true},
		{"good date", Patch{Date: Set("2025-03-14")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestItemPayload_Validation(t *testing.T) {
	valid := ItemPayload{Name: "n", Author: "a", Data: json.RawMessage(`{}`)}
	assert.NoError(t, validateStruct(valid))

	bad := valid
	bad.Date = "yesterday"
	assert.ErrorIs(t, validateStruct(bad), ErrValidation)

	bad = valid
	bad.Author = ""
	err := validateStruct(bad)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Author")
}
