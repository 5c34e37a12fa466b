package handlers

import (
	"context"
	"regexp"
	"strings"

	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// UnitsHandler switches the measurement system.
type UnitsHandler struct {
	svc *Service
}

// NewUnitsHandler returns a UnitsHandler.
func NewUnitsHandler(svc *Service) *UnitsHandler {
	return &UnitsHandler{svc: svc}
}

var (
	unitsTopic = regexp.MustCompile(`(?i)\bunits?\b|\bmeasur`)
	unitsValue = regexp.MustCompile(`(?i)\b(?P<units>metric|imperial)\b`)
)

func (h *UnitsHandler) Name() string { return "units" }

func (h *UnitsHandler) Match(text string) (map[string]string, bool) {
	if !unitsTopic.MatchString(text) {
		return nil, false
	}
	return matchNamed(unitsValue, text)
}

func (h *UnitsHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	units := strings.ToLower(args["units"])
	changed, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"units": {"measure": units},
	})
	if err != nil {
		return err
	}
	if !settings.Changed(changed) {
		h.svc.announcer.Announce(ctx, turn.UserID, "UnitsAlready", dialog.Params{"units": units})
		return nil
	}
	h.svc.announcer.Announce(ctx, turn.UserID, "UnitsChanged", dialog.Params{"units": units})
	return nil
}

// TimeFormatHandler switches between 12- and 24-hour clock display.
type TimeFormatHandler struct {
	svc *Service
}

// NewTimeFormatHandler returns a TimeFormatHandler.
func NewTimeFormatHandler(svc *Service) *TimeFormatHandler {
	return &TimeFormatHandler{svc: svc}
}

var (
	timeTopic    = regexp.MustCompile(`(?i)\btime\s*format\b|\b(?:12|24)[\s-]?hour\b|\bmilitary\s+time\b`)
	timeValue24  = regexp.MustCompile(`(?i)\b24\b|\bmilitary\b`)
	timeValue12  = regexp.MustCompile(`(?i)\b12\b`)
)

func (h *TimeFormatHandler) Name() string { return "time_format" }

func (h *TimeFormatHandler) Match(text string) (map[string]string, bool) {
	if !timeTopic.MatchString(text) {
		return nil, false
	}
	switch {
	case timeValue24.MatchString(text):
		return map[string]string{"format": "24"}, true
	case timeValue12.MatchString(text):
		return map[string]string{"format": "12"}, true
	default:
		return nil, false
	}
}

func (h *TimeFormatHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	format := args["format"]
	hours := 12.0
	if format == "24" {
		hours = 24
	}
	changed, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"units": {"time": hours},
	})
	if err != nil {
		return err
	}
	key := "TimeFormatChanged"
	if !settings.Changed(changed) {
		key = "TimeFormatAlready"
	}
	h.svc.announcer.Announce(ctx, turn.UserID, key, dialog.Params{"format": format})
	return nil
}

// DateFormatHandler sets the spoken date ordering.
type DateFormatHandler struct {
	svc *Service
}

// NewDateFormatHandler returns a DateFormatHandler.
func NewDateFormatHandler(svc *Service) *DateFormatHandler {
	return &DateFormatHandler{svc: svc}
}

var dateTopic = regexp.MustCompile(`(?i)\bdate\s*format\b|\bdates?\b.*\b(?:format|order)\b`)

func (h *DateFormatHandler) Name() string { return "date_format" }

// Match accepts either an explicit code ("DMY") or the spoken word order
// ("day month year").
func (h *DateFormatHandler) Match(text string) (map[string]string, bool) {
	if !dateTopic.MatchString(text) {
		return nil, false
	}
	if format, ok := dateOrder(text); ok {
		return map[string]string{"format": format}, true
	}
	return nil, false
}

var dateCode = regexp.MustCompile(`(?i)\b(?P<code>MDY|DMY|YMD)\b`)

func dateOrder(text string) (string, bool) {
	if args, ok := matchNamed(dateCode, text); ok {
		return strings.ToUpper(args["code"]), true
	}
	lower := strings.ToLower(text)
	type part struct {
		letter byte
		pos    int
	}
	parts := []part{
		{'M', strings.Index(lower, "month")},
		{'D', strings.Index(lower, "day")},
		{'Y', strings.Index(lower, "year")},
	}
	for _, p := range parts {
		if p.pos < 0 {
			return "", false
		}
	}
	// Order the letters by where they appear in the utterance.
	for i := 0; i < len(parts); i++ {
		for j := i + 1; j < len(parts); j++ {
			if parts[j].pos < parts[i].pos {
				parts[i], parts[j] = parts[j], parts[i]
			}
		}
	}
	code := string([]byte{parts[0].letter, parts[1].letter, parts[2].letter})
	switch code {
	case "MDY", "DMY", "YMD":
		return code, true
	default:
		return "", false
	}
}

func (h *DateFormatHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	format := args["format"]
	if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"units": {"date": format},
	}); err != nil {
		return err
	}
	h.svc.announcer.Announce(ctx, turn.UserID, "DateFormatChanged",
		dialog.Params{"format": spokenDateOrder(format)})
	return nil
}

func spokenDateOrder(code string) string {
	switch code {
	case "DMY":
		return "day month year"
	case "YMD":
		return "year month day"
	default:
		return "month day year"
	}
}
