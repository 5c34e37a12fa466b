package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// ReadbackHandler answers "what is my X" for individual settings and reads
// a headline summary for "what are my settings".
type ReadbackHandler struct {
	svc *Service
}

// NewReadbackHandler returns a ReadbackHandler.
func NewReadbackHandler(svc *Service) *ReadbackHandler {
	return &ReadbackHandler{svc: svc}
}

var readbackPattern = regexp.MustCompile(
	`(?i)\bwhat(?:'s|\s+is|\s+are)\s+(?:my\s+|the\s+)?(?P<setting>units?|time\s*format|date\s*format|location|time\s*zone|wake\s*(?:word|phrase)|email|name|speech\s*rate|verbosity|settings?)\b`)

func (h *ReadbackHandler) Name() string { return "readback" }

func (h *ReadbackHandler) Match(text string) (map[string]string, bool) {
	return matchNamed(readbackPattern, text)
}

func (h *ReadbackHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	doc, err := h.svc.Load(ctx, turn.UserID)
	if err != nil {
		return err
	}

	setting := normaliseSettingName(args["setting"])
	if setting == "settings" {
		// Full readback: the handful of values people actually ask about.
		for _, name := range []string{"units", "location", "wake phrase", "time format"} {
			h.announceOne(ctx, turn.UserID, name, doc)
		}
		return nil
	}
	h.announceOne(ctx, turn.UserID, setting, doc)
	return nil
}

func (h *ReadbackHandler) announceOne(ctx context.Context, userID, setting string, doc settings.Document) {
	value := lookupSetting(doc, setting)
	h.svc.announcer.Announce(ctx, userID, "ReadSetting",
		dialog.Params{"setting": setting, "value": value})
}

func normaliseSettingName(spoken string) string {
	s := strings.Join(strings.Fields(strings.ToLower(spoken)), " ")
	switch s {
	case "unit", "units":
		return "units"
	case "wake word", "wake phrase":
		return "wake phrase"
	case "setting", "settings":
		return "settings"
	default:
		return s
	}
}

func lookupSetting(doc settings.Document, setting string) string {
	switch setting {
	case "units":
		return str(doc["units"]["measure"])
	case "time format":
		return fmt.Sprintf("%s-hour", str(doc["units"]["time"]))
	case "date format":
		return spokenDateOrder(str(doc["units"]["date"]))
	case "location":
		city := str(doc["location"]["city"])
		country := str(doc["location"]["country"])
		if city == "" {
			return "not set"
		}
		return city + ", " + country
	case "time zone":
		return str(doc["location"]["tz"])
	case "wake phrase":
		return str(doc["listener"]["wake_phrase"])
	case "email":
		if v := str(doc["user"]["email"]); v != "" {
			return v
		}
		return "not set"
	case "name":
		if v := str(doc["user"]["name"]); v != "" {
			return v
		}
		return "not set"
	case "speech rate":
		return str(doc["speech"]["rate"])
	case "verbosity":
		return str(doc["response_mode"]["verbosity"])
	default:
		return "not set"
	}
}

// str renders a leaf value for speech; normalised numbers drop the
// trailing ".0" so "12" is not read as "twelve point zero".
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%g", t), ".0")
	default:
		return fmt.Sprintf("%v", t)
	}
}
