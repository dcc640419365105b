package simplecatalog

import (
	"context"
	"encoding/json"
	"strings"
)

// cloudMetaKey holds the index metadata embedded in structured payloads.
const cloudMetaKey = "_cloud_meta"

// JSONSniffer reads "name" and "author" from a JSON payload. Top-level
// fields win over the ones stored under _cloud_meta.
type JSONSniffer struct{}

func (JSONSniffer) Sniff(_ context.Context, filename string, content []byte, rec *Record) error {
	if !strings.HasSuffix(strings.ToLower(filename), ".json") {
		return nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		return err
	}

	fill := func(src map[string]json.RawMessage) {
		if v, ok := stringField(src, "name"); ok && v != "" {
			rec.Name = v
		}
		if v, ok := stringField(src, "author"); ok && v != "" {
			rec.Author = v
		}
	}

	if raw, ok := doc[cloudMetaKey]; ok {
		var meta map[string]json.RawMessage
		if err := json.Unmarshal(raw, &meta); err == nil {
			fill(meta)
		}
	}
	fill(doc)
	return nil
}

func stringField(m map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// DefaultSniffers returns the sniffers used when none are configured:
// structured types are sniffed for name and author.
func DefaultSniffers() map[TypeTag]MetadataSniffer {
	sniffers := make(map[TypeTag]MetadataSniffer)
	for _, c := range typeTable {
		if c.Structured {
			sniffers[c.Tag] = JSONSniffer{}
		}
	}
	return sniffers
}
