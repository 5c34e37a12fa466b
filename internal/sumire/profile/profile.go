// Package profile persists per-user settings documents.
//
// Two backends implement the same Store contract: a SQLite table (the
// default for the daemon) and a YAML-file-per-user directory (useful for
// single-board installs where the profile should be hand-editable).  The
// merge engine never sees either backend; handlers load a document, merge,
// and save the result.
package profile

import (
	"context"
	"errors"

	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// ErrNotFound is returned by Load when no profile exists for the user.
var ErrNotFound = errors.New("profile: not found")

// Store is the read/write interface for user settings documents.
// Implementations must be safe for concurrent use and must validate
// documents against the settings schema on load.
type Store interface {
	// Load returns the stored document for userID, or ErrNotFound.
	Load(ctx context.Context, userID string) (settings.Document, error)

	// Save persists the document for userID, creating or overwriting it.
	Save(ctx context.Context, userID string, doc settings.Document) error
}

// LoadOrDefault returns the stored document for userID, or a fresh default
// document when none exists yet.  Any other load error is passed through.
func LoadOrDefault(ctx context.Context, s Store, userID string) (settings.Document, error) {
	doc, err := s.Load(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return settings.Default(), nil
	}
	return doc, err
}
