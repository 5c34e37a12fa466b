package confirm

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bdobrica/Sumire/common/trace"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/vocab"
)

// fillers are the short acknowledgments spoken before running a confirmed
// action, when the user has hesitation speech enabled.
var fillers = []string{"FillerOkay", "FillerSoundsGood"}

// Controller runs the confirmation conversation: it poses exactly one
// question per request, classifies the user's next relevant reply, and
// commits, cancels, or passes the turn through untouched.
type Controller struct {
	reg        *Registry
	classifier *vocab.Classifier
	announcer  dialog.Announcer
	recorder   Recorder

	expiryNotice bool
	hesitation   func(ctx context.Context, userID string) bool
	fillerSeq    atomic.Uint32
}

// Option configures a Controller.
type Option func(*Controller, *[]RegistryOption)

// WithTimeout overrides the default confirmation window.
func WithTimeout(d time.Duration) Option {
	return func(_ *Controller, regOpts *[]RegistryOption) {
		*regOpts = append(*regOpts, WithTTL(d))
	}
}

// WithRecorder installs an audit recorder for resolved outcomes.
func WithRecorder(rec Recorder) Option {
	return func(c *Controller, _ *[]RegistryOption) {
		if rec != nil {
			c.recorder = rec
		}
	}
}

// WithExpiryNotice makes the controller tell the user when a posed question
// times out.  Default is to expire silently.
func WithExpiryNotice() Option {
	return func(c *Controller, _ *[]RegistryOption) {
		c.expiryNotice = true
	}
}

// WithHesitation installs the predicate deciding whether the user wants a
// short verbal acknowledgment before a confirmed action runs.
func WithHesitation(fn func(ctx context.Context, userID string) bool) Option {
	return func(c *Controller, _ *[]RegistryOption) {
		c.hesitation = fn
	}
}

// New creates a Controller with its own registry.
func New(classifier *vocab.Classifier, announcer dialog.Announcer, opts ...Option) *Controller {
	c := &Controller{
		classifier: classifier,
		announcer:  announcer,
		recorder:   NopRecorder{},
	}
	var regOpts []RegistryOption
	for _, opt := range opts {
		opt(c, &regOpts)
	}
	regOpts = append(regOpts, WithExpiryHook(c.expired))
	c.reg = NewRegistry(regOpts...)
	return c
}

// Close releases the controller's timers.
func (c *Controller) Close() {
	c.reg.Close()
}

// Request registers a deferred action and poses its question.  If the user
// already has a question outstanding the new one is queued and posed only
// once it reaches the front, so the user is never juggling two open
// questions at once.
func (c *Controller) Request(ctx context.Context, userID string, p Pending) {
	_, pos := c.reg.Register(userID, p)
	slog.Info("confirmation requested",
		"user", userID, "tag", p.Tag, "queued_behind", pos, "trace_id", trace.FromContext(ctx))
	if pos == 0 {
		c.announcer.Announce(ctx, userID, p.Question, p.QuestionParams)
	}
}

// HasPending reports whether the user has an unanswered question.
func (c *Controller) HasPending(userID string) bool {
	_, ok := c.reg.Peek(userID)
	return ok
}

// Cancel drops everything pending for the user without running commits and
// without speaking.  Used when the session ends.
func (c *Controller) Cancel(userID string) {
	c.reg.Expire(userID)
}

// Resolve examines the user's utterance against their pending question.  It
// reports whether the turn was consumed: an affirmation commits the action,
// a denial discards it, and anything else leaves the question armed and
// returns false so the utterance flows to ordinary intent handling.
//
// A commit failure is spoken as a generic apology and the entry is still
// cleared; the user can re-issue the request, but a second "yes" must never
// re-fire a dead question.
func (c *Controller) Resolve(ctx context.Context, userID, utterance, lang string) bool {
	if _, ok := c.reg.Peek(userID); !ok {
		return false
	}

	switch c.classifier.Classify(utterance, lang) {
	case vocab.Affirm:
		p, err := c.reg.Pop(userID)
		if err != nil {
			// Expired between Peek and Pop: nothing was pending after all.
			return false
		}
		if c.hesitation != nil && c.hesitation(ctx, userID) {
			c.announcer.Announce(ctx, userID, c.nextFiller(), nil)
		}
		if err := p.Commit(ctx); err != nil {
			slog.Error("confirmed action failed",
				"user", userID, "tag", p.Tag, "trace_id", trace.FromContext(ctx), "err", err)
			c.announcer.Announce(ctx, userID, "SomethingWentWrong", nil)
			c.recorder.Record(ctx, userID, p.Tag, OutcomeFailed, p.CreatedAt)
		} else {
			slog.Info("confirmed action committed", "user", userID, "tag", p.Tag)
			c.recorder.Record(ctx, userID, p.Tag, OutcomeAffirmed, p.CreatedAt)
		}
		c.poseNext(ctx, userID)
		return true

	case vocab.Deny:
		p, err := c.reg.Pop(userID)
		if err != nil {
			return false
		}
		slog.Info("confirmed action declined", "user", userID, "tag", p.Tag)
		c.announcer.Announce(ctx, userID, "ActionCancelled", nil)
		c.recorder.Record(ctx, userID, p.Tag, OutcomeDenied, p.CreatedAt)
		c.poseNext(ctx, userID)
		return true

	default:
		return false
	}
}

// poseNext speaks the next queued question, if any.
func (c *Controller) poseNext(ctx context.Context, userID string) {
	if next := c.reg.Next(userID); next != nil {
		c.announcer.Announce(ctx, userID, next.Question, next.QuestionParams)
	}
}

func (c *Controller) nextFiller() string {
	return fillers[int(c.fillerSeq.Add(1))%len(fillers)]
}

// expired is the registry's timeout callback.  It runs on the timer
// goroutine with no request context, so it builds a fresh traced one.
func (c *Controller) expired(userID string, p Pending, wasHead bool, next *Pending) {
	ctx := trace.WithTraceID(context.Background(), trace.GenerateID())
	slog.Info("pending confirmation expired",
		"user", userID, "tag", p.Tag, "asked", wasHead, "requested_at", p.CreatedAt)
	c.recorder.Record(ctx, userID, p.Tag, OutcomeExpired, p.CreatedAt)

	if !wasHead {
		// The question was never posed; nothing to say or follow up on.
		return
	}
	if c.expiryNotice {
		c.announcer.Announce(ctx, userID, "ExpiryNotice", nil)
	}
	if next != nil {
		c.announcer.Announce(ctx, userID, next.Question, next.QuestionParams)
	}
}
