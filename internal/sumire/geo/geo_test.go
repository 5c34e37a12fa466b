package geo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bdobrica/Sumire/internal/sumire/geo"
)

func TestStatic_Locate(t *testing.T) {
	s := geo.NewStatic()

	p, err := s.Locate(context.Background(), "  madrid ")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if p.Country != "Spain" || p.Timezone != "Europe/Madrid" {
		t.Errorf("unexpected place: %+v", p)
	}

	if _, err := s.Locate(context.Background(), "atlantis"); !errors.Is(err, geo.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestChain_FallsThrough(t *testing.T) {
	broken := locatorFunc(func(context.Context, string) (geo.Place, error) {
		return geo.Place{}, errors.New("connection refused")
	})
	c := geo.Chain{broken, geo.NewStatic()}

	p, err := c.Locate(context.Background(), "tokyo")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if p.Timezone != "Asia/Tokyo" {
		t.Errorf("Timezone = %q", p.Timezone)
	}
}

type locatorFunc func(ctx context.Context, query string) (geo.Place, error)

func (f locatorFunc) Locate(ctx context.Context, query string) (geo.Place, error) {
	return f(ctx, query)
}

func TestOpenMeteo_Locate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("name"); got != "madrid" {
			t.Errorf("query name = %q", got)
		}
		w.Write([]byte(`{"results":[{"name":"Madrid","admin1":"Madrid","country":"Spain",
			"latitude":40.4168,"longitude":-3.7038,"timezone":"Europe/Madrid"}]}`))
	}))
	defer srv.Close()

	p, err := geo.NewOpenMeteo(srv.URL).Locate(context.Background(), "madrid")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if p.City != "Madrid" || p.Lat != 40.4168 || p.Timezone != "Europe/Madrid" {
		t.Errorf("unexpected place: %+v", p)
	}
}

func TestOpenMeteo_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := geo.NewOpenMeteo(srv.URL).Locate(context.Background(), "atlantis"); !errors.Is(err, geo.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOffsetForZone(t *testing.T) {
	// A winter instant: New York is UTC-5, no daylight saving.
	winter := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)

	off, err := geo.OffsetForZone("America/New_York", winter)
	if err != nil {
		t.Fatalf("OffsetForZone: %v", err)
	}
	if off != -5 {
		t.Errorf("offset = %v, want -5", off)
	}

	if _, err := geo.OffsetForZone("Nowhere/Void", winter); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestZoneForOffset(t *testing.T) {
	cases := []struct {
		hours float64
		want  string
	}{
		{0, "Etc/GMT"},
		{-5, "Etc/GMT+5"}, // POSIX sign convention is inverted
		{9, "Etc/GMT-9"},
	}
	for _, tc := range cases {
		got, err := geo.ZoneForOffset(tc.hours)
		if err != nil {
			t.Errorf("ZoneForOffset(%v): %v", tc.hours, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ZoneForOffset(%v) = %q, want %q", tc.hours, got, tc.want)
		}
		// The named zone must round-trip to the requested offset.
		off, err := geo.OffsetForZone(got, time.Now())
		if err != nil || off != tc.hours {
			t.Errorf("OffsetForZone(%q) = %v, %v; want %v", got, off, err, tc.hours)
		}
	}

	if _, err := geo.ZoneForOffset(5.5); err == nil {
		t.Error("expected error for fractional offset")
	}
	if _, err := geo.ZoneForOffset(20); err == nil {
		t.Error("expected error for out-of-range offset")
	}
}
