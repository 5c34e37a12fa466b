package matrix

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bdobrica/Sumire/internal/sumire/dialog"
)

// Noticer is the outbound surface the announcer needs; *Client satisfies
// it, and tests substitute a recorder.
type Noticer interface {
	SendNotice(ctx context.Context, roomID, text string) error
}

// Announcer delivers rendered dialog lines as Matrix notices. Lines are
// addressed by user, so it remembers the room each user last spoke in:
// replies, confirmation questions, and expiry notices all land where the
// conversation is actually happening.
type Announcer struct {
	noticer  Noticer
	renderer *dialog.Renderer
	lang     func(ctx context.Context, userID string) string

	mu    sync.Mutex
	rooms map[string]string
}

// NewAnnouncer creates an Announcer. lang resolves a user's reply language
// and may be nil, which pins everything to en-us.
func NewAnnouncer(noticer Noticer, renderer *dialog.Renderer, lang func(ctx context.Context, userID string) string) *Announcer {
	return &Announcer{
		noticer:  noticer,
		renderer: renderer,
		lang:     lang,
		rooms:    make(map[string]string),
	}
}

// Track records the room a user's latest utterance arrived in.
func (a *Announcer) Track(userID, roomID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rooms[userID] = roomID
}

// Announce renders key for the user's language and sends it to their room.
// Delivery failures are logged, never propagated: a dropped notice must not
// abort the settings operation behind it.
func (a *Announcer) Announce(ctx context.Context, userID, key string, params dialog.Params) {
	a.mu.Lock()
	roomID, ok := a.rooms[userID]
	a.mu.Unlock()
	if !ok {
		slog.Warn("no known room for user, dropping announcement", "user", userID, "key", key)
		return
	}

	lang := "en-us"
	if a.lang != nil {
		lang = a.lang(ctx, userID)
	}
	line, err := a.renderer.Render(key, lang, params)
	if err != nil {
		slog.Error("failed to render dialog line", "key", key, "lang", lang, "err", err)
		return
	}
	if err := a.noticer.SendNotice(ctx, roomID, line); err != nil {
		slog.Error("failed to deliver notice", "user", userID, "room", roomID, "err", err)
	}
}
