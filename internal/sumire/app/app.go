// Package app wires the Sumire settings skill together and runs it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bdobrica/Sumire/common/trace"
	"github.com/bdobrica/Sumire/internal/sumire/bus"
	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/geo"
	"github.com/bdobrica/Sumire/internal/sumire/handlers"
	"github.com/bdobrica/Sumire/internal/sumire/matrix"
	"github.com/bdobrica/Sumire/internal/sumire/profile"
	"github.com/bdobrica/Sumire/internal/sumire/store"
	"github.com/bdobrica/Sumire/internal/sumire/vocab"
)

// Config holds application configuration.
type Config struct {
	// DatabasePath is the SQLite file backing profiles, the confirmation
	// audit log, and the Matrix sync state.
	DatabasePath string

	// ProfileDir, when set, stores profiles as one YAML file per user in
	// this directory instead of SQLite. Useful for deployments that sync
	// profiles with external tooling.
	ProfileDir string

	Matrix matrix.Config

	// DefaultLang is the dialog language when a user's cannot be
	// determined. Defaults to "en-us".
	DefaultLang string

	// ConfirmTimeout is how long a pending yes/no question stays
	// answerable. Zero uses the built-in default.
	ConfirmTimeout time.Duration

	// ExpiryNotice makes the skill say something when a question times
	// out; by default expiry is silent.
	ExpiryNotice bool

	// GeocoderURL overrides the place-lookup endpoint, mainly for tests.
	GeocoderURL string

	// EventsRoom, when set, mirrors settings.changed events into this
	// Matrix room as JSON notices for skills running on other hosts.
	EventsRoom string

	// AllowedSenders is an optional allowlist of Matrix user IDs. When
	// empty, any room member may change their own settings.
	AllowedSenders []string
}

// App is the running skill.
type App struct {
	config    *Config
	store     *store.Store
	matrix    *matrix.Client
	announcer *matrix.Announcer
	confirm   *confirm.Controller
	router    *handlers.Router
	bus       *bus.InProc
}

// New builds the application from config.
func New(config *Config) (*App, error) {
	if config.DefaultLang == "" {
		config.DefaultLang = "en-us"
	}

	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var profiles profile.Store
	if config.ProfileDir != "" {
		profiles, err = profile.NewYAMLStore(config.ProfileDir)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to open profile directory: %w", err)
		}
		slog.Info("profile store: YAML files", "dir", config.ProfileDir)
	} else {
		profiles = profile.NewSQLiteStore(st)
		slog.Info("profile store: SQLite", "path", config.DatabasePath)
	}

	renderer, err := dialog.NewBuiltinRenderer()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load dialog lines: %w", err)
	}
	words, err := vocab.LoadBuiltin()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	matrixConfig := config.Matrix
	matrixConfig.DB = st.DB()
	client, err := matrix.New(&matrixConfig)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create Matrix client: %w", err)
	}

	lang := func(context.Context, string) string { return config.DefaultLang }
	announcer := matrix.NewAnnouncer(client, renderer, lang)

	confirmOpts := []confirm.Option{
		confirm.WithRecorder(confirm.NewSQLiteRecorder(st)),
		confirm.WithHesitation(hesitationLookup(profiles)),
	}
	if config.ConfirmTimeout > 0 {
		confirmOpts = append(confirmOpts, confirm.WithTimeout(config.ConfirmTimeout))
	}
	if config.ExpiryNotice {
		confirmOpts = append(confirmOpts, confirm.WithExpiryNotice())
	}
	ctrl := confirm.New(vocab.NewClassifier(words), announcer, confirmOpts...)

	events := bus.NewInProc()
	var publisher bus.Publisher = events
	if config.EventsRoom != "" {
		publisher = bus.Multi{events, matrix.NewNoticePublisher(client, config.EventsRoom)}
	}
	locator := geo.Chain{geo.NewOpenMeteo(config.GeocoderURL), geo.NewStatic()}
	svc := handlers.NewService(profiles, announcer, ctrl, publisher, locator)

	return &App{
		config:    config,
		store:     st,
		matrix:    client,
		announcer: announcer,
		confirm:   ctrl,
		router:    handlers.NewRouter(handlers.All(svc)...),
		bus:       events,
	}, nil
}

// Bus exposes the settings-change event stream for co-resident skills.
func (a *App) Bus() *bus.InProc {
	return a.bus
}

// Run starts the skill and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.handleMessage); err != nil {
		return fmt.Errorf("failed to start Matrix client: %w", err)
	}

	slog.Info("Sumire is running; press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop releases the application's resources.
func (a *App) Stop() {
	slog.Info("stopping Matrix client")
	a.matrix.Stop()

	a.confirm.Close()

	slog.Info("closing database")
	a.store.Close()
}

// handleMessage processes one inbound utterance: pending confirmations get
// first claim on the turn, then the intent handlers, and anything neither
// wants is someone else's conversation.
func (a *App) handleMessage(ctx context.Context, msg matrix.Message) {
	if !a.senderAllowed(msg.Sender) {
		return
	}

	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	a.announcer.Track(msg.Sender, msg.RoomID)

	if a.confirm.Resolve(ctx, msg.Sender, msg.Text, a.config.DefaultLang) {
		return
	}

	handled, err := a.router.Route(ctx, handlers.Turn{
		UserID: msg.Sender,
		Text:   msg.Text,
		Lang:   a.config.DefaultLang,
	})
	if err != nil {
		slog.Error("settings intent failed",
			"user", msg.Sender, "trace_id", trace.FromContext(ctx), "err", err)
		a.announcer.Announce(ctx, msg.Sender, "SomethingWentWrong", nil)
		return
	}
	if !handled {
		slog.Debug("utterance not a settings intent", "user", msg.Sender)
	}
}

func (a *App) senderAllowed(sender string) bool {
	if len(a.config.AllowedSenders) == 0 {
		return true
	}
	for _, s := range a.config.AllowedSenders {
		if s == sender {
			return true
		}
	}
	return false
}

// hesitationLookup reads response_mode.hesitation from the user's profile.
func hesitationLookup(profiles profile.Store) func(ctx context.Context, userID string) bool {
	return func(ctx context.Context, userID string) bool {
		doc, err := profile.LoadOrDefault(ctx, profiles, userID)
		if err != nil {
			return false
		}
		on, _ := doc["response_mode"]["hesitation"].(bool)
		return on
	}
}
