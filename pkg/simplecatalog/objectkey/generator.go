package objectkey

import (
	"fmt"
	"path"
	"strings"
)

// Generator defines the strategy for naming a newly stored blob within its
// type folder. The returned value is a bare filename, not a full key.
type Generator interface {
	// GenerateFilename creates the storage filename for a new item
	GenerateFilename(id string, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences filename generation
type KeyMetadata struct {
	// OriginalName is the client-supplied filename (e.g. "kick.wav")
	OriginalName string
}

// ExtensionGenerator names binary uploads {id}{ext}, keeping the extension of
// the original filename so content types can be derived from it later.
type ExtensionGenerator struct{}

func NewExtensionGenerator() *ExtensionGenerator {
	return &ExtensionGenerator{}
}

func (g *ExtensionGenerator) GenerateFilename(id string, metadata *KeyMetadata) string {
	if metadata == nil {
		return id
	}
	return id + sanitizeExtension(path.Ext(metadata.OriginalName))
}

// JSONDataGenerator names structured payloads {id}.json
type JSONDataGenerator struct{}

func NewJSONDataGenerator() *JSONDataGenerator {
	return &JSONDataGenerator{}
}

func (g *JSONDataGenerator) GenerateFilename(id string, _ *KeyMetadata) string {
	return id + ".json"
}

// Key joins a type folder (which carries its trailing slash) and a filename.
func Key(folder, filename string) string {
	return folder + filename
}

// ShaderMetaKey is the per-item metadata document of a shader.
func ShaderMetaKey(folder, id string) string {
	return fmt.Sprintf("%s%s/metadata.json", folder, sanitizePathComponent(id))
}

// Strip returns the filename of key relative to folder. It reports false for
// keys outside folder, for the folder itself and for keys nested below it,
// which are never content blobs of the folder's type.
func Strip(folder, key string) (string, bool) {
	if !strings.HasPrefix(key, folder) {
		return "", false
	}
	name := strings.TrimPrefix(key, folder)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

// Ext returns the lower-cased extension of a filename, including the dot.
func Ext(filename string) string {
	return strings.ToLower(path.Ext(filename))
}

func sanitizeExtension(ext string) string {
	replacer := strings.NewReplacer(
		"/", "",
		"\\", "",
		":", "",
		"*", "",
		"?", "",
		"\"", "",
		"<", "",
		">", "",
		"|", "",
		" ", "",
	)
	return replacer.Replace(ext)
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(component)
}
