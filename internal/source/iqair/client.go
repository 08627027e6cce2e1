// Package iqair provides the IQAir (AirVisual) air quality source adapter.
package iqair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/source"
	"github.com/skyshield/skyshield/internal/source/resilience"
)

const (
	// DefaultBaseURL is the base URL for the IQAir API.
	DefaultBaseURL = "https://api.airvisual.com/v2"

	// SourceName identifies this source.
	SourceName = "iqair"
)

// ClientConfig holds configuration for the IQAir client.
type ClientConfig struct {
	// APIKey is the IQAir API key (required).
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 15s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an IQAir API client implementing source.AirQualitySource.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new IQAir client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            SourceName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the source name.
func (c *Client) Name() string {
	return SourceName
}

// API response types (from the IQAir city endpoint).

type cityResponse struct {
	Status string   `json:"status"`
	Data   cityData `json:"data"`
}

type cityData struct {
	City    string      `json:"city"`
	Country string      `json:"country"`
	Current currentData `json:"current"`
}

type currentData struct {
	Pollution pollutionData `json:"pollution"`
}

type pollutionData struct {
	Timestamp string  `json:"ts"`
	AQIUS     float64 `json:"aqius"`
	MainUS    string  `json:"mainus"`
	PM25      float64 `json:"p2"`
	O3        float64 `json:"o3"`
	NO2       float64 `json:"n2"`
}

// FetchAirQuality fetches the current pollution readings for a city.
// Readings the vendor does not report are simply absent from the result;
// the resolver fills the gaps.
func (c *Client) FetchAirQuality(ctx context.Context, city monitor.City) ([]source.Reading, error) {
	q := url.Values{}
	q.Set("city", city.Key.City)
	q.Set("state", city.State)
	q.Set("country", city.Key.Country)
	q.Set("key", c.apiKey)

	reqURL := fmt.Sprintf("%s/city?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, source.NewError(SourceName, source.FailureBadResponse, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, source.NewError(SourceName, source.FailureRateLimit, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, source.NewError(SourceName, source.FailureBadResponse, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var result cityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, source.NewError(SourceName, source.FailureBadResponse, fmt.Errorf("decode city response: %w", err))
	}

	if result.Status != "success" {
		return nil, source.NewError(SourceName, source.FailureBadResponse, fmt.Errorf("api status %q", result.Status))
	}

	return c.toReadings(&result.Data.Current.Pollution), nil
}

// toReadings translates the vendor pollution payload into source readings.
func (c *Client) toReadings(p *pollutionData) []source.Reading {
	observedAt := time.Now()
	if ts, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
		observedAt = ts
	}

	var readings []source.Reading
	if p.AQIUS > 0 {
		readings = append(readings, source.Reading{
			Pollutant:  monitor.PollutantAQI,
			Value:      p.AQIUS,
			Unit:       "AQI",
			ObservedAt: observedAt,
		})
	}
	if p.PM25 > 0 {
		readings = append(readings, source.Reading{
			Pollutant:  monitor.PollutantPM25,
			Value:      p.PM25,
			Unit:       "µg/m³",
			ObservedAt: observedAt,
		})
	}
	if p.O3 > 0 {
		readings = append(readings, source.Reading{
			Pollutant:  monitor.PollutantO3,
			Value:      p.O3,
			Unit:       "ppb",
			ObservedAt: observedAt,
		})
	}
	if p.NO2 > 0 {
		readings = append(readings, source.Reading{
			Pollutant:  monitor.PollutantNO2,
			Value:      p.NO2,
			Unit:       "ppb",
			ObservedAt: observedAt,
		})
	}

	return readings
}

func (c *Client) classifyError(err error) error {
	switch {
	case errors.Is(err, resilience.ErrRateLimited):
		return source.NewError(SourceName, source.FailureRateLimit, err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return source.NewError(SourceName, source.FailureNetwork, err)
	default:
		return source.NewError(SourceName, source.KindOf(err), err)
	}
}
