// Package dialog renders and delivers the skill's spoken/written lines.
//
// Lines live as one-per-file text/template files, grouped per language, and
// are addressed by key (file name without extension).  Delivery is
// fire-and-forget: announcing is how the skill talks to the user, and a
// failed send must never abort the settings operation that triggered it.
package dialog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"text/template"
)

//go:embed lines/*/*.tmpl
var builtinFS embed.FS

// Params carries template parameters for a dialog line.
type Params map[string]any

// Announcer delivers a rendered dialog line to a user.  Implementations
// must not propagate delivery failures to the caller; log and move on.
type Announcer interface {
	Announce(ctx context.Context, userID, key string, params Params)
}

// Renderer renders dialog lines from per-language template sets.
type Renderer struct {
	byLang map[string]*template.Template
}

// NewBuiltinRenderer loads the dialog lines bundled with the binary.
func NewBuiltinRenderer() (*Renderer, error) {
	return NewRenderer(builtinFS, "lines")
}

// NewRenderer loads dialog lines from fsys.  The expected layout is
// <dir>/<lang>/<key>.tmpl, e.g. "lines/en-us/NewWakePhrase.tmpl".
func NewRenderer(fsys fs.FS, dir string) (*Renderer, error) {
	langs, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("dialog: read dir %q: %w", dir, err)
	}

	r := &Renderer{byLang: make(map[string]*template.Template)}
	for _, langEntry := range langs {
		if !langEntry.IsDir() {
			continue
		}
		lang := strings.ToLower(langEntry.Name())
		tmpl := template.New(lang)
		files, err := fs.ReadDir(fsys, dir+"/"+langEntry.Name())
		if err != nil {
			return nil, fmt.Errorf("dialog: read dir %q: %w", lang, err)
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, ".tmpl") {
				continue
			}
			data, err := fs.ReadFile(fsys, dir+"/"+langEntry.Name()+"/"+name)
			if err != nil {
				return nil, fmt.Errorf("dialog: read %q: %w", name, err)
			}
			key := strings.TrimSuffix(name, ".tmpl")
			if _, err := tmpl.New(key).Parse(strings.TrimRight(string(data), "\n")); err != nil {
				return nil, fmt.Errorf("dialog: parse %s/%s: %w", lang, name, err)
			}
		}
		r.byLang[lang] = tmpl
	}
	if len(r.byLang) == 0 {
		return nil, fmt.Errorf("dialog: no language directories under %q", dir)
	}
	return r, nil
}

// Render produces the line for key in lang, falling back to "en-us" when
// the language (or the key within it) is unknown.
func (r *Renderer) Render(key, lang string, params Params) (string, error) {
	tmpl := r.lookup(strings.ToLower(lang), key)
	if tmpl == nil {
		return "", fmt.Errorf("dialog: no template %q for lang %q", key, lang)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, params); err != nil {
		return "", fmt.Errorf("dialog: render %q: %w", key, err)
	}
	return b.String(), nil
}

func (r *Renderer) lookup(lang, key string) *template.Template {
	if set, ok := r.byLang[lang]; ok {
		if t := set.Lookup(key); t != nil {
			return t
		}
	}
	if set, ok := r.byLang["en-us"]; ok {
		return set.Lookup(key)
	}
	return nil
}

// LogAnnouncer is an Announcer that only logs.  Used when no transport is
// configured (e.g. in the REPL-less test harness or a dry run).
type LogAnnouncer struct {
	Renderer *Renderer
	Lang     string
}

// Announce renders the line and writes it to the log.
func (a *LogAnnouncer) Announce(ctx context.Context, userID, key string, params Params) {
	line, err := a.Renderer.Render(key, a.Lang, params)
	if err != nil {
		slog.Error("dialog: render failed", "key", key, "err", err)
		return
	}
	slog.Info("dialog", "user", userID, "line", line)
}
