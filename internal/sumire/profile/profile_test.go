package profile_test

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/bdobrica/Sumire/internal/sumire/profile"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
	"github.com/bdobrica/Sumire/internal/sumire/store"
)

func newSQLiteStore(t *testing.T) profile.Store {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "profile-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	f.Close()

	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return profile.NewSQLiteStore(s)
}

func newYAMLStore(t *testing.T) profile.Store {
	t.Helper()
	s, err := profile.NewYAMLStore(t.TempDir())
	if err != nil {
		t.Fatalf("open yaml store: %v", err)
	}
	return s
}

// backends runs the same contract tests against every Store implementation.
func backends(t *testing.T) map[string]profile.Store {
	return map[string]profile.Store{
		"sqlite": newSQLiteStore(t),
		"yaml":   newYAMLStore(t),
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := settings.Default()
			doc["user"]["name"] = "Alice"
			doc["units"]["measure"] = "metric"

			if err := s.Save(ctx, "@alice:example.com", doc); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, "@alice:example.com")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Errorf("round trip mismatch:\ngot  %#v\nwant %#v", got, doc)
			}
		})
	}
}

func TestStore_LoadMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), "@nobody:example.com")
			if !errors.Is(err, profile.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, "@bob:example.com", settings.Default()); err != nil {
				t.Fatalf("first Save: %v", err)
			}

			doc := settings.Default()
			doc["units"]["time"] = float64(24)
			if err := s.Save(ctx, "@bob:example.com", doc); err != nil {
				t.Fatalf("second Save: %v", err)
			}

			got, err := s.Load(ctx, "@bob:example.com")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got["units"]["time"] != float64(24) {
				t.Errorf("units.time = %v, want 24", got["units"]["time"])
			}
		})
	}
}

func TestStore_RejectsInvalidDocument(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			doc := settings.Default()
			delete(doc, "privacy")
			if err := s.Save(context.Background(), "@eve:example.com", doc); err == nil {
				t.Fatal("expected Save to reject an incomplete document")
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	doc, err := profile.LoadOrDefault(ctx, s, "@new:example.com")
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if !reflect.DeepEqual(doc, settings.Default()) {
		t.Error("expected default document for unknown user")
	}

	doc["user"]["name"] = "Nia"
	if err := s.Save(ctx, "@new:example.com", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := profile.LoadOrDefault(ctx, s, "@new:example.com")
	if err != nil {
		t.Fatalf("LoadOrDefault after save: %v", err)
	}
	if got["user"]["name"] != "Nia" {
		t.Errorf("user.name = %v, want Nia", got["user"]["name"])
	}
}

func TestYAMLStore_SanitisesUserIDs(t *testing.T) {
	dir := t.TempDir()
	s, err := profile.NewYAMLStore(dir)
	if err != nil {
		t.Fatalf("NewYAMLStore: %v", err)
	}
	ctx := context.Background()

	// MXIDs contain '@' and ':' which must not leak into file paths.
	if err := s.Save(ctx, "@carol:example.com", settings.Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 profile file, got %d", len(entries))
	}
	name := entries[0].Name()
	for _, bad := range []string{"@", ":", "/"} {
		if strings.Contains(name, bad) {
			t.Errorf("file name %q contains %q", name, bad)
		}
	}

	if _, err := s.Load(ctx, "@carol:example.com"); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
