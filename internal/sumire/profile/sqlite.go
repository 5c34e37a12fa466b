package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bdobrica/Sumire/internal/sumire/settings"
	"github.com/bdobrica/Sumire/internal/sumire/store"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists profiles in the application database, one row per
// user with the document serialised as YAML.
type SQLiteStore struct {
	db *store.Store
}

// NewSQLiteStore creates a Store backed by the application SQLite database.
// The profiles migration must have been applied (guaranteed by store.New).
func NewSQLiteStore(db *store.Store) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load returns the document for userID or ErrNotFound.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (settings.Document, error) {
	var raw string
	err := s.db.DB().QueryRowContext(ctx,
		`SELECT document FROM profiles WHERE user_id = ?`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: load %q: %w", userID, err)
	}

	doc, err := settings.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("profile: load %q: %w", userID, err)
	}
	return doc, nil
}

// Save upserts the document for userID, updating updated_at to the current
// UTC time.
func (s *SQLiteStore) Save(ctx context.Context, userID string, doc settings.Document) error {
	if err := settings.Validate(doc); err != nil {
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}
	data, err := settings.Encode(doc)
	if err != nil {
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.DB().ExecContext(ctx, `
		INSERT INTO profiles (user_id, document, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			document   = excluded.document,
			updated_at = excluded.updated_at
	`, userID, string(data), now)
	if err != nil {
		return fmt.Errorf("profile: save %q: %w", userID, err)
	}
	return nil
}
