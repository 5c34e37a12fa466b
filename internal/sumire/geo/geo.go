// Package geo resolves spoken place names into coordinates and timezones
// for the location settings flow.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNotFound is returned when no place matches the query.
var ErrNotFound = errors.New("geo: place not found")

// Place is a resolved location.
type Place struct {
	City     string
	State    string
	Country  string
	Lat      float64
	Lng      float64
	Timezone string // IANA zone name, e.g. "Europe/Madrid"
}

// Locator resolves a free-text place query into a Place.
type Locator interface {
	Locate(ctx context.Context, query string) (Place, error)
}

// Chain tries each locator in order, returning the first hit. A locator
// error other than ErrNotFound also falls through to the next one, so a
// network outage degrades to the static table instead of failing the turn.
type Chain []Locator

// Locate implements Locator.
func (c Chain) Locate(ctx context.Context, query string) (Place, error) {
	var lastErr error = ErrNotFound
	for _, l := range c {
		p, err := l.Locate(ctx, query)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return Place{}, lastErr
}

// UTCOffset returns the place's current UTC offset in hours, e.g. -5 for
// America/New_York in winter.
func (p Place) UTCOffset(at time.Time) (float64, error) {
	return OffsetForZone(p.Timezone, at)
}

// OffsetForZone returns the UTC offset in hours of the named IANA zone at
// the given instant.
func OffsetForZone(zone string, at time.Time) (float64, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, fmt.Errorf("geo: load zone %q: %w", zone, err)
	}
	_, secs := at.In(loc).Zone()
	return float64(secs) / 3600, nil
}

// ZoneForOffset returns the fixed IANA zone for a whole-hour UTC offset.
// The Etc/GMT zone names carry the POSIX sign convention, which is inverted
// from common usage: UTC-5 is "Etc/GMT+5".
func ZoneForOffset(hours float64) (string, error) {
	if hours != math.Trunc(hours) {
		return "", fmt.Errorf("geo: offset %v is not a whole hour", hours)
	}
	h := int(hours)
	if h < -12 || h > 14 {
		return "", fmt.Errorf("geo: offset %d out of range", h)
	}
	switch {
	case h == 0:
		return "Etc/GMT", nil
	case h > 0:
		return fmt.Sprintf("Etc/GMT-%d", h), nil
	default:
		return fmt.Sprintf("Etc/GMT+%d", -h), nil
	}
}
