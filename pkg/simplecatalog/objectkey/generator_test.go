package objectkey

import (
	"testing"
)

func TestExtensionGenerator(t *testing.T) {
	gen := NewExtensionGenerator()
	id := "123e4567-e89b-12d3-a456-426614174000"

	tests := []struct {
		name     string
		metadata *KeyMetadata
		expected string
	}{
		{
			name:     "without metadata",
			metadata: nil,
			expected: id,
		},
		{
			name:     "keeps extension",
			metadata: &KeyMetadata{OriginalName: "Kick Drum.wav"},
			expected: id + ".wav",
		},
		{
			name:     "keeps extension case",
			metadata: &KeyMetadata{OriginalName: "track.FLAC"},
			expected: id + ".FLAC",
		},
		{
			name:     "no extension",
			metadata: &KeyMetadata{OriginalName: "README"},
			expected: id,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := gen.GenerateFilename(id, tt.metadata)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestJSONDataGenerator(t *testing.T) {
	gen := NewJSONDataGenerator()
	result := gen.GenerateFilename("abc", &KeyMetadata{OriginalName: "ignored.wav"})
	if result != "abc.json" {
		t.Errorf("expected abc.json, got %s", result)
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		key      string
		expected string
		ok       bool
	}{
		{"songs/abc.json", "abc.json", true},
		{"songs/", "", false},
		{"songs/abc/metadata.json", "", false},
		{"patterns/abc.json", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			name, ok := Strip("songs/", tt.key)
			if ok != tt.ok || name != tt.expected {
				t.Errorf("Strip(%q) = %q, %v; want %q, %v", tt.key, name, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestShaderMetaKey(t *testing.T) {
	if got := ShaderMetaKey("shaders/", "s1"); got != "shaders/s1/metadata.json" {
		t.Errorf("unexpected key %s", got)
	}
	if got := ShaderMetaKey("shaders/", "a/b"); got != "shaders/a_b/metadata.json" {
		t.Errorf("unexpected key %s", got)
	}
}
