package matrix

// syncstore.go implements mautrix.SyncStore on top of the Sumire SQLite
// database. Persisting the next_batch token across restarts keeps old room
// history from replaying, which for a settings skill would mean re-running
// commands the user issued in a previous session.

import (
	"context"
	"database/sql"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*syncStateStore)(nil)

// syncStateStore keeps one row per (user_id, key) in matrix_sync_state.
type syncStateStore struct {
	db *sql.DB
}

// newSyncStateStore wraps db. The matrix_sync_state migration must already
// be applied.
func newSyncStateStore(db *sql.DB) *syncStateStore {
	return &syncStateStore{db: db}
}

// SaveFilterID persists the Matrix event-filter ID for the given user.
func (s *syncStateStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.put(ctx, userID.String(), "filter_id", filterID)
}

// LoadFilterID returns ("", nil) when no filter has been saved yet.
func (s *syncStateStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.get(ctx, userID.String(), "filter_id")
}

// SaveNextBatch persists the opaque /sync resume token.
func (s *syncStateStore) SaveNextBatch(ctx context.Context, userID id.UserID, nextBatchToken string) error {
	return s.put(ctx, userID.String(), "next_batch", nextBatchToken)
}

// LoadNextBatch returns ("", nil) on the first run.
func (s *syncStateStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.get(ctx, userID.String(), "next_batch")
}

func (s *syncStateStore) put(ctx context.Context, userID, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matrix_sync_state (user_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value
	`, userID, key, value)
	return err
}

func (s *syncStateStore) get(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM matrix_sync_state WHERE user_id = ? AND key = ?
	`, userID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}
