package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bdobrica/Sumire/internal/sumire/confirm"
	"github.com/bdobrica/Sumire/internal/sumire/dialog"
	"github.com/bdobrica/Sumire/internal/sumire/geo"
	"github.com/bdobrica/Sumire/internal/sumire/settings"
)

// LocationHandler changes the user's location. The location itself applies
// immediately; the matching timezone change is offered as a linked
// follow-up because a traveller may want local weather without shifting
// their clock.
type LocationHandler struct {
	svc *Service
}

// NewLocationHandler returns a LocationHandler.
func NewLocationHandler(svc *Service) *LocationHandler {
	return &LocationHandler{svc: svc}
}

var locationPattern = regexp.MustCompile(
	`(?i)\b(?:location|city)\s+(?:to|is)\s+(?P<place>[^.?!]+?)[.?!]?$`)

func (h *LocationHandler) Name() string { return "location" }

func (h *LocationHandler) Match(text string) (map[string]string, bool) {
	return matchNamed(locationPattern, text)
}

func (h *LocationHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	query := strings.TrimSpace(args["place"])
	place, err := h.svc.locator.Locate(ctx, query)
	if err != nil {
		h.svc.announcer.Announce(ctx, turn.UserID, "LocationLookupFailed", nil)
		return nil
	}

	return h.svc.confirm.RequestLinked(ctx, turn.UserID, confirm.LinkedChange{
		ApplyNow: func(ctx context.Context) error {
			_, err := h.svc.Apply(ctx, turn.UserID, locationUpdate(place))
			return err
		},
		Followup: confirm.Pending{
			Tag:      "tzChange",
			Question: "AlsoChange",
			QuestionParams: dialog.Params{
				"changed": "location", "new": place.City, "other": "timezone",
			},
			Lang: turn.Lang,
			Commit: func(ctx context.Context) error {
				// The lookup is re-run at commit time: the answer may come
				// half a minute later and must reflect the world as it is,
				// not a snapshot captured with the question.
				fresh, err := h.svc.locator.Locate(ctx, query)
				if err != nil {
					return fmt.Errorf("relocate %q: %w", query, err)
				}
				if err := h.applyTimezone(ctx, turn.UserID, fresh.Timezone); err != nil {
					return err
				}
				h.svc.announcer.Announce(ctx, turn.UserID, "LocationChanged",
					dialog.Params{"type": "timezone", "location": fresh.Timezone})
				return nil
			},
		},
	})
}

func (h *LocationHandler) applyTimezone(ctx context.Context, userID, zone string) error {
	offset, err := geo.OffsetForZone(zone, time.Now())
	if err != nil {
		return err
	}
	_, err = h.svc.Apply(ctx, userID, settings.Update{
		"location": {"tz": zone, "utc": offset},
	})
	return err
}

func locationUpdate(p geo.Place) settings.Update {
	return settings.Update{
		"location": {
			"city":    p.City,
			"state":   p.State,
			"country": p.Country,
			"lat":     p.Lat,
			"lng":     p.Lng,
		},
	}
}

// TimezoneHandler changes the user's timezone, either by explicit UTC
// offset or by place name. A place-name change offers the matching
// location change as a linked follow-up.
type TimezoneHandler struct {
	svc *Service
}

// NewTimezoneHandler returns a TimezoneHandler.
func NewTimezoneHandler(svc *Service) *TimezoneHandler {
	return &TimezoneHandler{svc: svc}
}

var (
	timezoneTopic  = regexp.MustCompile(`(?i)\btime\s*zone\b`)
	timezoneOffset = regexp.MustCompile(`(?i)\b(?:utc|gmt)\s*(?P<sign>[+-])?\s*(?P<hours>\d{1,2})?\b`)
	timezonePlace  = regexp.MustCompile(`(?i)\btime\s*zone\s+(?:to|of|is|in)\s+(?P<place>[^.?!]+?)[.?!]?$`)
)

func (h *TimezoneHandler) Name() string { return "timezone" }

func (h *TimezoneHandler) Match(text string) (map[string]string, bool) {
	if !timezoneTopic.MatchString(text) {
		return nil, false
	}
	if args, ok := matchNamed(timezoneOffset, text); ok {
		return args, true
	}
	return matchNamed(timezonePlace, text)
}

func (h *TimezoneHandler) Handle(ctx context.Context, turn Turn, args map[string]string) error {
	if _, isOffset := args["sign"]; isOffset || args["hours"] != "" || hasUTCWord(args) {
		return h.handleOffset(ctx, turn, args)
	}
	return h.handlePlace(ctx, turn, strings.TrimSpace(args["place"]))
}

func hasUTCWord(args map[string]string) bool {
	_, ok := args["place"]
	return !ok
}

// handleOffset writes the zone directly: "change my timezone to UTC-5".
// There is nothing to look up and nothing linked, so no confirmation.
func (h *TimezoneHandler) handleOffset(ctx context.Context, turn Turn, args map[string]string) error {
	hours := 0.0
	if args["hours"] != "" {
		parsed, err := strconv.ParseFloat(args["hours"], 64)
		if err != nil {
			return fmt.Errorf("parse offset %q: %w", args["hours"], err)
		}
		hours = parsed
	}
	if args["sign"] == "-" {
		hours = -hours
	}

	zone, err := geo.ZoneForOffset(hours)
	if err != nil {
		h.svc.announcer.Announce(ctx, turn.UserID, "LocationLookupFailed", nil)
		return nil
	}
	if _, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
		"location": {"tz": zone, "utc": hours},
	}); err != nil {
		return err
	}
	h.svc.announcer.Announce(ctx, turn.UserID, "LocationChanged",
		dialog.Params{"type": "timezone", "location": spokenOffset(hours)})
	return nil
}

func spokenOffset(hours float64) string {
	if hours < 0 {
		return fmt.Sprintf("UTC-%g", -hours)
	}
	return fmt.Sprintf("UTC+%g", hours)
}

func (h *TimezoneHandler) handlePlace(ctx context.Context, turn Turn, query string) error {
	place, err := h.svc.locator.Locate(ctx, query)
	if err != nil {
		h.svc.announcer.Announce(ctx, turn.UserID, "LocationLookupFailed", nil)
		return nil
	}
	offset, err := geo.OffsetForZone(place.Timezone, time.Now())
	if err != nil {
		return err
	}

	return h.svc.confirm.RequestLinked(ctx, turn.UserID, confirm.LinkedChange{
		ApplyNow: func(ctx context.Context) error {
			_, err := h.svc.Apply(ctx, turn.UserID, settings.Update{
				"location": {"tz": place.Timezone, "utc": offset},
			})
			return err
		},
		Followup: confirm.Pending{
			Tag:      "locChange",
			Question: "AlsoChange",
			QuestionParams: dialog.Params{
				"changed": "timezone", "new": place.Timezone, "other": "location",
			},
			Lang: turn.Lang,
			Commit: func(ctx context.Context) error {
				fresh, err := h.svc.locator.Locate(ctx, query)
				if err != nil {
					return fmt.Errorf("relocate %q: %w", query, err)
				}
				if _, err := h.svc.Apply(ctx, turn.UserID, locationUpdate(fresh)); err != nil {
					return err
				}
				h.svc.announcer.Announce(ctx, turn.UserID, "LocationChanged",
					dialog.Params{"type": "location", "location": fresh.City})
				return nil
			},
		},
	})
}
