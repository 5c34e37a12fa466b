package handlers

import (
	"context"
	"regexp"
	"strconv"

	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// TranscriptionHandler grants or revokes audio/text transcription.
// Granting is gated behind a confirmation; revoking a permission applies
// immediately, since declining to record needs no second thought.
type TranscriptionHandler struct {
	svc *Service
}

// NewTranscriptionHandler returns a TranscriptionHandler.
func NewTranscriptionHandler(svc *Service) *TranscriptionHandler {
	return &TranscriptionHandler{svc: svc}
}

var (
	transcriptionTopic = regexp.MustCompile(`(?i)\btranscri(?:be|ption|pts?)\b|\brecord(?:ing)?\b`)
	transcriptionText  = regexp.MustCompile(`(?i)\btext\b`)
	transcriptionGrant = regexp.MustCompile(`(?i)\b(?:permit|allow|enable|start|begin|turn\s+on)\b`)
	transcriptionDeny  = regexp.MustCompile(`(?i)\b(?:deny|forbid|disable|stop|turn\s+off|don'?t)\b`)
)

func (h *TranscriptionHandler) Name() string { return "transcription" }

func (h *TranscriptionHandler) Match(text string) (map[string]string, bool) {
	if !transcriptionTopic.MatchString(text) {
		return nil, false
	}
	option := "audio"
	if transcriptionText.MatchString(text) {
		option = "text"
	}
	switch {
	case transcriptionDeny.MatchString(text):
		return map[string]string{"option": option, "action": "deny"}, true
	case transcriptionGrant.MatchString(text):
		return map[string]string{"option": option, "action": "permit"}, true
	default:
		return nil, false
	}
}

func (h *TranscriptionHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	option := args["option"]
	key := "transcribe_audio"
	tag := "PermitAudioRecording"
	if option == "text" {
		key = "transcribe_text"
		tag = "PermitTextTranscription"
	}

	if args["action"] == "deny" {
		if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
			"privacy": {key: false},
		}); err != nil {
			return err
		}
		h.svc.announcer.Announce(ctx, turn.UserID, "TranscriptionUpdated",
			dialog.Params{"option": option, "state": "disabled"})
		return nil
	}

	h.svc.confirm.Request(ctx, turn.UserID, confirm.Pending{
		Tag:            tag,
		Question:       "ConfirmTranscription",
		QuestionParams: dialog.Params{"action": "begin", "option": option},
		Lang:           turn.Lang,
		Commit: func(ctx context.Context) error {
			if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
				"privacy": {key: true},
			}); err != nil {
				return err
			}
			h.svc.announcer.Announce(ctx, turn.UserID, "TranscriptionUpdated",
				dialog.Params{"option": option, "state": "enabled"})
			return nil
		},
	})
	return nil
}

// RetentionHandler sets how long transcriptions are kept.
type RetentionHandler struct {
	svc *Service
}

// NewRetentionHandler returns a RetentionHandler.
func NewRetentionHandler(svc *Service) *RetentionHandler {
	return &RetentionHandler{svc: svc}
}

var (
	retentionTopic = regexp.MustCompile(`(?i)\bretention\b|\bkeep\b.*\btranscri`)
	retentionValue = regexp.MustCompile(`(?P<days>\d+)\s*days?\b`)
)

func (h *RetentionHandler) Name() string { return "retention" }

func (h *RetentionHandler) Match(text string) (map[string]string, bool) {
	if !retentionTopic.MatchString(text) {
		return nil, false
	}
	return matchNamed(retentionValue, text)
}

func (h *RetentionHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	days, err := strconv.Atoi(args["days"])
	if err != nil {
		h.svc.announcer.Announce(ctx, turn.UserID, "SomethingWentWrong", nil)
		return nil
	}
	if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"privacy": {"retention_days": float64(days)},
	}); err != nil {
		return err
	}
	h.svc.announcer.Announce(ctx, turn.UserID, "RetentionChanged", dialog.Params{"days": days})
	return nil
}
