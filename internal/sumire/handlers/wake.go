package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// WakePhraseHandler changes the listener's wake phrase. The change is gated
// behind a confirmation: a mis-heard wake phrase locks the user out of the
// assistant, so it never applies on the first utterance.
type WakePhraseHandler struct {
	svc *Service
}

// NewWakePhraseHandler returns a WakePhraseHandler.
func NewWakePhraseHandler(svc *Service) *WakePhraseHandler {
	return &WakePhraseHandler{svc: svc}
}

var wakePattern = regexp.MustCompile(
	`(?i)\b(?:wake|activation)\s*(?:word|phrase)\s*(?:to|is|should\s+be)\s+['"]?(?P<phrase>[a-z0-9' ]+?)['"]?[.?!]?$`)

func (h *WakePhraseHandler) Name() string { return "wake_phrase" }

func (h *WakePhraseHandler) Match(text string) (map[string]string, bool) {
	return matchNamed(wakePattern, text)
}

func (h *WakePhraseHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	phrase := strings.ToLower(strings.TrimSpace(args["phrase"]))

	// Single-word wake phrases false-trigger constantly; refuse outright
	// rather than asking the user to confirm a bad idea.
	if len(strings.Fields(phrase)) < 2 {
		h.svc.announcer.Announce(ctx, turn.UserID, "NeedLongerWakePhrase", nil)
		return nil
	}

	h.svc.confirm.Request(ctx, turn.UserID, confirm.Pending{
		Tag:            "wwChange",
		Question:       "ConfirmNewWakePhrase",
		QuestionParams: dialog.Params{"phrase": phrase},
		Lang:           turn.Lang,
		Commit: func(ctx context.Context) error {
			if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
				"listener": {"wake_phrase": phrase},
			}); err != nil {
				return err
			}
			h.svc.announcer.Announce(ctx, turn.UserID, "NewWakePhrase", dialog.Params{"phrase": phrase})
			return nil
		},
	})
	return nil
}
