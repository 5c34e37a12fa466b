// Package settings defines the user preferences document and the merge
// engine that applies partial updates to it.
//
// A Document is a tree of named sections, each a flat map of scalar leaves
// (bool, number, or string).  The shape of the tree is fixed by the document
// schema: a merge may change leaf values but never adds, removes, or retypes
// a leaf.  The package computes the next document value only — persistence
// and change notification belong to the caller.
package settings

import (
	"fmt"
	"sort"
)

// Document is the full nested preferences tree for one user.
type Document map[string]Section

// Section is a flat map of leaf settings within one named section.
type Section map[string]any

// Update is a sparse tree with the same section/key shape as a Document,
// containing only the leaves being changed.
type Update map[string]Section

// Default returns a fresh document with every section and leaf present,
// holding the out-of-the-box preferences for a new user.
func Default() Document {
	return Document{
		"units": Section{
			"measure": "imperial",
			"time":    float64(12),
			"date":    "MDY",
		},
		"location": Section{
			"city":    "",
			"state":   "",
			"country": "",
			"lat":     float64(0),
			"lng":     float64(0),
			"tz":      "America/New_York",
			"utc":     float64(-5),
		},
		"listener": Section{
			"wake_phrase": "hey sumire",
			"phonemes":    "",
		},
		"speech": Section{
			"rate":  float64(1),
			"voice": "female",
		},
		"privacy": Section{
			"transcribe_audio": false,
			"transcribe_text":  false,
			"retention_days":   float64(14),
		},
		"response_mode": Section{
			"verbosity":  "normal",
			"hesitation": false,
		},
		"user": Section{
			"name":  "",
			"email": "",
		},
	}
}

// Clone returns a deep copy of the document.  Sections and leaves are
// copied; leaf values are scalars so a shallow copy per section suffices.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for name, sec := range d {
		cp := make(Section, len(sec))
		for k, v := range sec {
			cp[k] = v
		}
		out[name] = cp
	}
	return out
}

// SectionNames returns the sorted names of all sections in the document.
func (d Document) SectionNames() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// leafKind names the scalar type of a leaf value for error messages and
// type-stability checks.  normalizeLeaf guarantees every stored leaf is one
// of exactly these three kinds.
func leafKind(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case float64:
		return "number"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// normalizeLeaf coerces a scalar into its canonical stored form.  All
// numeric types collapse to float64 so that a value decoded from YAML (int)
// compares equal to the same value set programmatically (float64).
func normalizeLeaf(v any) (any, error) {
	switch n := v.(type) {
	case bool, string, float64:
		return n, nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	default:
		return nil, fmt.Errorf("settings: leaf value of unsupported type %T", v)
	}
}

// Normalize rewrites every leaf of the document into canonical form,
// returning an error for any leaf that is not a scalar.  Profile stores call
// this after decoding so documents from different codecs compare equal.
func (d Document) Normalize() error {
	for name, sec := range d {
		for k, v := range sec {
			nv, err := normalizeLeaf(v)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", name, k, err)
			}
			sec[k] = nv
		}
	}
	return nil
}
