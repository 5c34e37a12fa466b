package confirm

import (
	"context"
	"log/slog"
	"time"

	"github.com/bdobrica/Sumire/common/trace"
	"github.com/bdobrica/Sumire/internal/sumire/store"
)

// Outcome is the terminal state of a confirmation entry.
type Outcome string

const (
	OutcomeAffirmed Outcome = "affirmed"
	OutcomeDenied   Outcome = "denied"
	OutcomeExpired  Outcome = "expired"
	// OutcomeFailed means the user affirmed but the commit returned an
	// error.  The entry is still cleared; an error never leaves a question
	// re-answerable.
	OutcomeFailed Outcome = "failed"
)

// Recorder persists resolved confirmation outcomes for auditing.  Recording
// is best-effort: a failed write is logged, never surfaced, because audit
// trouble must not break the conversation.
type Recorder interface {
	Record(ctx context.Context, userID, tag string, outcome Outcome, requestedAt time.Time)
}

// NopRecorder discards all records.
type NopRecorder struct{}

// Record does nothing.
func (NopRecorder) Record(context.Context, string, string, Outcome, time.Time) {}

// SQLiteRecorder writes outcomes to the confirmation_log table.
type SQLiteRecorder struct {
	store *store.Store
}

// NewSQLiteRecorder returns a Recorder backed by s.
func NewSQLiteRecorder(s *store.Store) *SQLiteRecorder {
	return &SQLiteRecorder{store: s}
}

// Record inserts one confirmation_log row.
func (r *SQLiteRecorder) Record(ctx context.Context, userID, tag string, outcome Outcome, requestedAt time.Time) {
	_, err := r.store.DB().ExecContext(ctx, `
		INSERT INTO confirmation_log (user_id, action_tag, outcome, trace_id, requested_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, tag, string(outcome), trace.FromContext(ctx),
		requestedAt.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		slog.Error("failed to record confirmation outcome",
			"user", userID, "tag", tag, "outcome", outcome, "err", err)
	}
}
