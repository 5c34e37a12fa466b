// Package bus defines the settings-change event envelope and the publishers
// that fan it out. Other skills subscribe to learn that a user's profile
// changed and which sections they need to re-read.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bdobrica/Sumire/common/trace"
)

// TypeSettingsChanged is the event type emitted after a profile write.
const TypeSettingsChanged = "settings.changed"

// Event is the normalised envelope published after a settings update. It
// names the modified sections rather than carrying the new values: consumers
// hold their own profile handle and re-read what they care about.
type Event struct {
	// ID uniquely identifies this emission so consumers can deduplicate.
	ID string `json:"id"`

	// Type classifies the event; currently always TypeSettingsChanged.
	Type string `json:"type"`

	// UserID is the profile owner whose settings changed.
	UserID string `json:"user_id"`

	// Sections lists the top-level settings sections that were modified,
	// sorted. Unchanged writes publish nothing, so this is never empty.
	Sections []string `json:"sections"`

	// TS is the UTC timestamp at which the change was committed.
	TS time.Time `json:"ts"`

	// TraceID correlates the event with the conversation turn that caused
	// it. May be empty for programmatic writes.
	TraceID string `json:"trace_id,omitempty"`
}

// NewSettingsChanged builds a settings.changed event for userID, stamping it
// with a fresh ID and the trace ID carried by ctx.
func NewSettingsChanged(ctx context.Context, userID string, sections []string) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     TypeSettingsChanged,
		UserID:   userID,
		Sections: sections,
		TS:       time.Now().UTC(),
		TraceID:  trace.FromContext(ctx),
	}
}

// Validate checks that an Event is structurally valid. It returns a
// descriptive error if any invariant is violated, or nil if the event may be
// safely published.
func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("event must not be nil")
	}
	if e.ID == "" {
		return fmt.Errorf("id must not be empty")
	}
	if e.Type == "" {
		return fmt.Errorf("type must not be empty")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id must not be empty")
	}
	if len(e.Sections) == 0 {
		return fmt.Errorf("sections must not be empty")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts must not be zero")
	}
	return nil
}

// Encode serialises the event as JSON after validating it.
func (e *Event) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("bus encode: %w", err)
	}
	return json.Marshal(e)
}

// ParseEvent decodes a JSON-encoded Event and validates it. It is the
// canonical entry point for deserialising events received off the wire.
func ParseEvent(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("bus parse: %w", err)
	}
	if err := evt.Validate(); err != nil {
		return nil, fmt.Errorf("bus validate: %w", err)
	}
	return &evt, nil
}
