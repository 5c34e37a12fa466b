package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// EmailHandler sets the user's email address. Setting a first address
// applies immediately; replacing an existing one is gated so a mis-heard
// address cannot silently take over the account contact.
type EmailHandler struct {
	svc *Service
}

// NewEmailHandler returns an EmailHandler.
func NewEmailHandler(svc *Service) *EmailHandler {
	return &EmailHandler{svc: svc}
}

var emailPattern = regexp.MustCompile(
	`(?i)\bemail\b.*?\b(?P<email>[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,})\b`)

func (h *EmailHandler) Name() string { return "email" }

func (h *EmailHandler) Match(text string) (map[string]string, bool) {
	return matchNamed(emailPattern, text)
}

func (h *EmailHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	email := strings.ToLower(args["email"])

	apply := func(ctx context.Context) error {
		if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
			"user": {"email": email},
		}); err != nil {
			return err
		}
		h.svc.announcer.Announce(ctx, turn.UserID, "EmailChanged", dialog.Params{"email": email})
		return nil
	}

	doc, err := h.svc.Load(ctx, turn.UserID)
	if err != nil {
		return err
	}
	current, _ := doc["user"]["email"].(string)
	if current == "" || current == email {
		return apply(ctx)
	}

	h.svc.confirm.Request(ctx, turn.UserID, confirm.Pending{
		Tag:            "emailChange",
		Question:       "ConfirmEmailOverwrite",
		QuestionParams: dialog.Params{"email": email},
		Lang:           turn.Lang,
		Commit:         apply,
	})
	return nil
}

// NameHandler sets what the assistant calls the user. Over-long names are
// usually recognition noise, so they are read back for confirmation first.
type NameHandler struct {
	svc *Service
}

// NewNameHandler returns a NameHandler.
func NewNameHandler(svc *Service) *NameHandler {
	return &NameHandler{svc: svc}
}

var namePattern = regexp.MustCompile(
	`(?i)\b(?:call\s+me|my\s+name\s+is|change\s+my\s+name\s+to)\s+(?P<name>[^.?!]+?)[.?!]?$`)

const (
	longNameWords = 3
	longNameRunes = 32
)

func (h *NameHandler) Name() string { return "name" }

func (h *NameHandler) Match(text string) (map[string]string, bool) {
	return matchNamed(namePattern, text)
}

func (h *NameHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	name := strings.TrimSpace(args["name"])

	apply := func(ctx context.Context) error {
		if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
			"user": {"name": name},
		}); err != nil {
			return err
		}
		h.svc.announcer.Announce(ctx, turn.UserID, "NameChanged", dialog.Params{"name": name})
		return nil
	}

	if len(strings.Fields(name)) <= longNameWords && len([]rune(name)) <= longNameRunes {
		return apply(ctx)
	}

	h.svc.confirm.Request(ctx, turn.UserID, confirm.Pending{
		Tag:            "nameChange",
		Question:       "ConfirmLongName",
		QuestionParams: dialog.Params{"name": name},
		Lang:           turn.Lang,
		Commit:         apply,
	})
	return nil
}
