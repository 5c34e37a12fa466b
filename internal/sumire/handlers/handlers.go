// Package handlers parses settings intents out of user utterances and runs
// them: immediate changes are merged and saved on the spot, sensitive ones
// go through the confirmation controller first.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/bdobrica/Sumire/internal/sumire/bus"
	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/geo"
	"github.com/bdobrica/Sumire/internal/sumire/profile"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// Turn is one inbound utterance from a user.
type Turn struct {
	UserID string
	Text   string
	Lang   string
}

// Handler recognises and executes one settings intent.
type Handler interface {
	// Name identifies the handler in logs.
	Name() string
	// Match reports whether the handler claims the utterance, returning
	// whatever it extracted from it.
	Match(text string) (args map[string]string, ok bool)
	// Handle executes the intent.
	Handle(ctx context.Context, turn Turn, args map[string]string) error
}

// Router dispatches a turn to the first handler that claims it.
type Router struct {
	handlers []Handler
}

// NewRouter creates a router over the given handlers; order matters, the
// first match wins.
func NewRouter(hs ...Handler) *Router {
	return &Router{handlers: hs}
}

// Route offers the turn to each handler in order. It reports whether any
// handler claimed it.
func (r *Router) Route(ctx context.Context, turn Turn) (bool, error) {
	for _, h := range r.handlers {
		args, ok := h.Match(turn.Text)
		if !ok {
			continue
		}
		slog.Info("intent matched", "handler", h.Name(), "user", turn.UserID)
		if err := h.Handle(ctx, turn, args); err != nil {
			return true, fmt.Errorf("%s: %w", h.Name(), err)
		}
		return true, nil
	}
	return false, nil
}

// Service bundles the collaborators every handler needs.
type Service struct {
	profiles  profile.Store
	announcer dialog.Announcer
	confirm   *confirm.Controller
	publisher bus.Publisher
	locator   geo.Locator

	// mu serialises read-modify-write cycles on profiles so two turns from
	// the same user (or a commit racing a fresh intent) cannot interleave
	// a lost update.
	mu sync.Mutex
}

// NewService wires a handler service.
func NewService(profiles profile.Store, announcer dialog.Announcer, ctrl *confirm.Controller, publisher bus.Publisher, locator geo.Locator) *Service {
	return &Service{
		profiles:  profiles,
		announcer: announcer,
		confirm:   ctrl,
		publisher: publisher,
		locator:   locator,
	}
}

// Load returns the user's current document, falling back to defaults.
func (s *Service) Load(ctx context.Context, userID string) (settings.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return profile.LoadOrDefault(ctx, s.profiles, userID)
}

// Apply merges update into the user's document, persists it, and publishes
// a settings.changed event naming the modified sections. A no-op update
// writes and publishes nothing; changed is nil in that case.
func (s *Service) Apply(ctx context.Context, userID string, update settings.Update) (changed []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := profile.LoadOrDefault(ctx, s.profiles, userID)
	if err != nil {
		return nil, err
	}
	newDoc, changed, err := settings.Apply(doc, update)
	if err != nil {
		return nil, err
	}
	if !settings.Changed(changed) {
		return nil, nil
	}
	if err := s.profiles.Save(ctx, userID, newDoc); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, bus.NewSettingsChanged(ctx, userID, changed)); err != nil {
		// The write stuck; a lost notification is not worth failing the turn.
		slog.Warn("failed to publish settings change", "user", userID, "err", err)
	}
	return changed, nil
}

// matchNamed runs re against text and returns its named capture groups.
func matchNamed(re *regexp.Regexp, text string) (map[string]string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	args := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && m[i] != "" {
			args[name] = m[i]
		}
	}
	return args, true
}
