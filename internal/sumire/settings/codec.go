package settings

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML-encoded settings document, normalizes its leaves, and
// validates it against the document schema.  It is the canonical entry point
// for loading documents from any backend.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("settings: parse: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("settings: parse: empty document")
	}
	if err := doc.Normalize(); err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode serialises the document as YAML.
func Encode(doc Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("settings: encode: %w", err)
	}
	return data, nil
}
