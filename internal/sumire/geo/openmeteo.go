package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bdobrica/Sumire/common/retry"
)

const defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1"

const defaultTimeout = 10 * time.Second

// OpenMeteo is a Locator backed by the Open-Meteo geocoding API, which
// needs no API key.
type OpenMeteo struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   retry.Config
}

// NewOpenMeteo creates a geocoding client. An empty baseURL selects the
// public endpoint.
func NewOpenMeteo(baseURL string) *OpenMeteo {
	if baseURL == "" {
		baseURL = defaultGeocodingURL
	}
	return &OpenMeteo{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retryCfg: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 300 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			// No amount of retrying conjures up a city that does not exist.
			ShouldRetry: func(err error) bool { return !errors.Is(err, ErrNotFound) },
		},
	}
}

// geocodingResponse mirrors the fields we need from GET /search.
type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Admin1    string  `json:"admin1"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

// Locate resolves query against the geocoding API, retrying transient
// failures. An empty result set is ErrNotFound and is not retried.
func (o *OpenMeteo) Locate(ctx context.Context, query string) (Place, error) {
	u := fmt.Sprintf("%s/search?name=%s&count=1&language=en&format=json",
		o.baseURL, url.QueryEscape(query))

	var place Place
	err := retry.Do(ctx, o.retryCfg, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := o.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("geocoding request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read geocoding body: %w", err)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("geocoding → %d", resp.StatusCode)
		}

		var decoded geocodingResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("unmarshal geocoding response: %w", err)
		}
		if len(decoded.Results) == 0 {
			return ErrNotFound
		}
		r := decoded.Results[0]
		place = Place{
			City:     r.Name,
			State:    r.Admin1,
			Country:  r.Country,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
			Timezone: r.Timezone,
		}
		return nil
	})
	if err != nil {
		return Place{}, err
	}
	return place, nil
}
