package settings

import (
	"fmt"
	"sort"
)

// UnknownSettingError reports a partial update that references a section or
// key not present in the document schema.  It indicates a caller/schema
// mismatch and is surfaced loudly rather than swallowed.
type UnknownSettingError struct {
	// Path is the offending dotted path, e.g. "units.bogus".
	Path string
}

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("settings: unknown setting %q", e.Path)
}

// TypeMismatchError reports an update that would change the stable type of a
// leaf (e.g. writing a string where the document holds a number).  Like
// UnknownSettingError it is a programmer error, not a user-facing condition.
type TypeMismatchError struct {
	Path string
	Have string
	Want string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("settings: %q holds %s, update supplies %s", e.Path, e.Want, e.Have)
}

// Apply merges a partial update into the document and returns the resulting
// document together with the sorted names of sections whose values actually
// changed.  The input document is never mutated.
//
// The merge is additive and overwriting, never subtractive: leaves absent
// from the update are untouched.  Every leaf in the update must already
// exist in the document with the same scalar type; otherwise Apply fails
// with UnknownSettingError or TypeMismatchError and the original document is
// returned unchanged.
func Apply(doc Document, update Update) (Document, []string, error) {
	// Validate the whole update before touching anything so a failed merge
	// leaves no partial writes behind.
	secNames := make([]string, 0, len(update))
	for name := range update {
		secNames = append(secNames, name)
	}
	sort.Strings(secNames)

	for _, name := range secNames {
		sec, ok := doc[name]
		if !ok {
			return doc, nil, &UnknownSettingError{Path: name}
		}
		keys := make([]string, 0, len(update[name]))
		for k := range update[name] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cur, ok := sec[k]
			if !ok {
				return doc, nil, &UnknownSettingError{Path: name + "." + k}
			}
			nv, err := normalizeLeaf(update[name][k])
			if err != nil {
				return doc, nil, fmt.Errorf("%s.%s: %w", name, k, err)
			}
			if leafKind(cur) != leafKind(nv) {
				return doc, nil, &TypeMismatchError{
					Path: name + "." + k,
					Have: leafKind(nv),
					Want: leafKind(cur),
				}
			}
		}
	}

	out := doc.Clone()
	var changed []string
	for _, name := range secNames {
		sectionChanged := false
		for k, v := range update[name] {
			nv, _ := normalizeLeaf(v)
			if out[name][k] != nv {
				out[name][k] = nv
				sectionChanged = true
			}
		}
		if sectionChanged {
			changed = append(changed, name)
		}
	}
	return out, changed, nil
}

// Changed reports whether Apply would modify anything, given its returned
// section list.  Kept as a helper so call sites read as the contract does:
// merge(document, update) -> (newDocument, changed).
func Changed(sections []string) bool {
	return len(sections) > 0
}
