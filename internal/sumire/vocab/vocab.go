// Package vocab classifies conversational replies to pending yes/no
// questions.
//
// The word lists are language-scoped YAML documents (one per language tag)
// bundled with the binary; deployments can point Sumire at a directory of
// overrides instead.  The classifier itself only distinguishes three
// outcomes: the reply affirms the question, denies it, or has nothing to do
// with it.
package vocab

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var builtinFS embed.FS

// Lookup answers whether an utterance matches a language's affirmative or
// negative vocabulary.  Both may be false (the utterance is unrelated);
// implementations should never report both true, but the classifier guards
// against that anyway.
type Lookup interface {
	IsAffirmative(utterance, lang string) bool
	IsNegative(utterance, lang string) bool
}

// lists holds the parsed vocabulary for one language.
type lists struct {
	Affirmative []string `yaml:"affirmative"`
	Negative    []string `yaml:"negative"`
}

// WordLists is a Lookup backed by per-language word/phrase lists.
type WordLists struct {
	byLang map[string]lists
}

// Compile-time interface check.
var _ Lookup = (*WordLists)(nil)

// LoadBuiltin loads the vocabulary bundled with the binary.
func LoadBuiltin() (*WordLists, error) {
	return Load(builtinFS, "data")
}

// Load reads every <lang>.yaml file under dir in fsys.  File names are
// lowercased language tags, e.g. "en-us.yaml".
func Load(fsys fs.FS, dir string) (*WordLists, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("vocab: read dir %q: %w", dir, err)
	}

	w := &WordLists{byLang: make(map[string]lists)}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("vocab: read %q: %w", name, err)
		}
		var l lists
		if err := yaml.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("vocab: parse %q: %w", name, err)
		}
		lang := strings.ToLower(strings.TrimSuffix(name, ".yaml"))
		w.byLang[lang] = l
	}
	if len(w.byLang) == 0 {
		return nil, fmt.Errorf("vocab: no language files under %q", dir)
	}
	return w, nil
}

// Languages returns the language tags the lookup knows about.
func (w *WordLists) Languages() []string {
	langs := make([]string, 0, len(w.byLang))
	for l := range w.byLang {
		langs = append(langs, l)
	}
	return langs
}

// IsAffirmative reports whether the utterance contains an affirmative
// word or phrase for lang.
func (w *WordLists) IsAffirmative(utterance, lang string) bool {
	return w.match(utterance, lang, func(l lists) []string { return l.Affirmative })
}

// IsNegative reports whether the utterance contains a negative word or
// phrase for lang.
func (w *WordLists) IsNegative(utterance, lang string) bool {
	return w.match(utterance, lang, func(l lists) []string { return l.Negative })
}

func (w *WordLists) match(utterance, lang string, pick func(lists) []string) bool {
	l, ok := w.byLang[normalizeLang(lang)]
	if !ok {
		// Unknown language: fall back to the primary subtag ("en" for
		// "en-nz") when any variant of it is loaded.
		l, ok = w.fallback(lang)
		if !ok {
			return false
		}
	}

	text := " " + normalizeText(utterance) + " "
	for _, phrase := range pick(l) {
		if strings.Contains(text, " "+normalizeText(phrase)+" ") {
			return true
		}
	}
	return false
}

func (w *WordLists) fallback(lang string) (lists, bool) {
	primary, _, _ := strings.Cut(normalizeLang(lang), "-")
	for tag, l := range w.byLang {
		if p, _, _ := strings.Cut(tag, "-"); p == primary {
			return l, true
		}
	}
	return lists{}, false
}

func normalizeLang(lang string) string {
	return strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
}

// normalizeText lowercases the input and strips everything except letters,
// digits, and spaces so "Yes, do it!" matches the phrase "yes".
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
