package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// Compile-time interface check.
var _ Store = (*YAMLStore)(nil)

// YAMLStore keeps one YAML file per user under a root directory.  Writes go
// through a temp file + rename so a crash mid-save never leaves a truncated
// profile behind.
type YAMLStore struct {
	root string
	mu   sync.Mutex
}

// NewYAMLStore creates a Store rooted at dir, creating the directory if
// needed.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("profile: create dir %q: %w", dir, err)
	}
	return &YAMLStore{root: dir}, nil
}

// path maps a user ID to a file name.  User IDs are opaque and may contain
// characters that are unsafe in file names (Matrix MXIDs contain ':' and
// '@'), so everything outside [a-zA-Z0-9._-] is replaced.
func (s *YAMLStore) path(userID string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, userID)
	return filepath.Join(s.root, mapped+".yaml")
}

// Load returns the document for userID or ErrNotFound.
func (s *YAMLStore) Load(ctx context.Context, userID string) (settings.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: load %q: %w", userID, err)
	}

	doc, err := settings.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile: load %q: %w", userID, err)
	}
	return doc, nil
}

// Save writes the document for userID atomically.
func (s *YAMLStore) Save(ctx context.Context, userID string, doc settings.Document) error {
	if err := settings.Validate(doc); err != nil {
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}
	data, err := settings.Encode(doc)
	if err != nil {
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(userID)
	tmp, err := os.CreateTemp(s.root, ".profile-*.tmp")
	if err != nil {
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}
	return nil
}
