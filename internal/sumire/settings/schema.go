package settings

import (
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed settings.schema.json
var schemaJSON string

// schema is compiled once at init; the embedded document is part of the
// build, so a compile failure is a build defect, not a runtime condition.
var schema = jsonschema.MustCompileString("settings.schema.json", schemaJSON)

// Validate checks a document against the embedded JSON Schema: every known
// section present, every leaf of its stable type, nothing extra.  Profile
// stores call this after decoding so a hand-edited or corrupted profile is
// rejected on load instead of surfacing later as a merge error.
func Validate(doc Document) error {
	if err := schema.Validate(jsonValue(doc)); err != nil {
		return fmt.Errorf("settings: document failed schema validation: %w", err)
	}
	return nil
}

// jsonValue converts the document into the plain map/scalar shape the schema
// validator walks (the same shape encoding/json produces).
func jsonValue(doc Document) any {
	out := make(map[string]any, len(doc))
	for name, sec := range doc {
		m := make(map[string]any, len(sec))
		for k, v := range sec {
			m[k] = v
		}
		out[name] = m
	}
	return out
}
