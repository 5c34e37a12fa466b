package handlers

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// Speech rate bounds mirror the profile schema; the handler clamps rather
// than rejecting so "talk at speed 10" lands on the fastest usable voice.
const (
	minSpeechRate = 0.25
	maxSpeechRate = 4.0
)

// SpeechRateHandler sets how fast the assistant talks.
type SpeechRateHandler struct {
	svc *Service
}

// NewSpeechRateHandler returns a SpeechRateHandler.
func NewSpeechRateHandler(svc *Service) *SpeechRateHandler {
	return &SpeechRateHandler{svc: svc}
}

var (
	speechRateTopic = regexp.MustCompile(`(?i)\b(?:speech|speaking|talking)\s*(?:rate|speed)\b`)
	speechRateValue = regexp.MustCompile(`(?P<rate>\d+(?:\.\d+)?)`)
)

func (h *SpeechRateHandler) Name() string { return "speech_rate" }

func (h *SpeechRateHandler) Match(text string) (map[string]string, bool) {
	if !speechRateTopic.MatchString(text) {
		return nil, false
	}
	return matchNamed(speechRateValue, text)
}

func (h *SpeechRateHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	rate, err := strconv.ParseFloat(args["rate"], 64)
	if err != nil {
		h.svc.announcer.Announce(ctx, turn.UserID, "SomethingWentWrong", nil)
		return nil
	}
	if rate < minSpeechRate {
		rate = minSpeechRate
	}
	if rate > maxSpeechRate {
		rate = maxSpeechRate
	}

	if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"speech": {"rate": rate},
	}); err != nil {
		return err
	}
	h.svc.announcer.Announce(ctx, turn.UserID, "SpeechRateChanged", dialog.Params{"rate": rate})
	return nil
}

// VerbosityHandler sets how chatty responses are.
type VerbosityHandler struct {
	svc *Service
}

// NewVerbosityHandler returns a VerbosityHandler.
func NewVerbosityHandler(svc *Service) *VerbosityHandler {
	return &VerbosityHandler{svc: svc}
}

var (
	verbosityTopic = regexp.MustCompile(`(?i)\bverbosit|\bresponses?\b`)
	verbosityValue = regexp.MustCompile(`(?i)\b(?P<level>terse|brief|short|normal|verbose|detailed)\b`)
)

func (h *VerbosityHandler) Name() string { return "verbosity" }

func (h *VerbosityHandler) Match(text string) (map[string]string, bool) {
	if !verbosityTopic.MatchString(text) {
		return nil, false
	}
	return matchNamed(verbosityValue, text)
}

func (h *VerbosityHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	level := canonicalVerbosity(args["level"])
	if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"response_mode": {"verbosity": level},
	}); err != nil {
		return err
	}
	h.svc.announcer.Announce(ctx, turn.UserID, "VerbosityChanged", dialog.Params{"level": level})
	return nil
}

func canonicalVerbosity(spoken string) string {
	switch strings.ToLower(spoken) {
	case "brief", "short", "terse":
		return "terse"
	case "detailed", "verbose":
		return "verbose"
	default:
		return "normal"
	}
}

// HesitationHandler toggles the short filler acknowledgment spoken while a
// confirmed action runs.
type HesitationHandler struct {
	svc *Service
}

// NewHesitationHandler returns a HesitationHandler.
func NewHesitationHandler(svc *Service) *HesitationHandler {
	return &HesitationHandler{svc: svc}
}

var (
	hesitationTopic = regexp.MustCompile(`(?i)\bhesitation\b|\bfiller\b`)
	hesitationOn    = regexp.MustCompile(`(?i)\b(?:on|enable|start|turn\s+on)\b`)
	hesitationOff   = regexp.MustCompile(`(?i)\b(?:off|disable|stop|turn\s+off)\b`)
)

func (h *HesitationHandler) Name() string { return "hesitation" }

func (h *HesitationHandler) Match(text string) (map[string]string, bool) {
	if !hesitationTopic.MatchString(text) {
		return nil, false
	}
	switch {
	case hesitationOff.MatchString(text):
		return map[string]string{"state": "off"}, true
	case hesitationOn.MatchString(text):
		return map[string]string{"state": "on"}, true
	default:
		return nil, false
	}
}

func (h *HesitationHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	on := args["state"] == "on"
	if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"response_mode": {"hesitation": on},
	}); err != nil {
		return err
	}
	key := "HesitationOff"
	if on {
		key = "HesitationOn"
	}
	h.svc.announcer.Announce(ctx, turn.UserID, key, nil)
	return nil
}
