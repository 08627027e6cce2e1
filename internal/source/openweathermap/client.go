// Package openweathermap provides the OpenWeatherMap weather source
// adapter.
package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/source"
	"github.com/skyshield/skyshield/internal/source/resilience"
)

const (
	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// SourceName identifies this source.
	SourceName = "openweathermap"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenWeatherMap API client implementing
// source.WeatherSource.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            SourceName,
			Timeout:         timeout,
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Name returns the source name.
func (c *Client) Name() string {
	return SourceName
}

// API response types (from the OpenWeatherMap current weather endpoint).

type currentWeatherResponse struct {
	Weather []weatherInfo `json:"weather"`
	Main    mainInfo      `json:"main"`
	Wind    windInfo      `json:"wind"`
	Clouds  cloudsInfo    `json:"clouds"`
	Vis     float64       `json:"visibility"`
	Dt      int64         `json:"dt"`
}

type weatherInfo struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type mainInfo struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type windInfo struct {
	Speed float64 `json:"speed"`
}

type cloudsInfo struct {
	All float64 `json:"all"`
}

// FetchWeather fetches the current weather observation for a city.
func (c *Client) FetchWeather(ctx context.Context, city monitor.City) (*source.WeatherReading, error) {
	reqURL := fmt.Sprintf("%s/weather?lat=%.6f&lon=%.6f&appid=%s&units=metric",
		c.baseURL, city.Lat, city.Lon, c.apiKey)

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

	var owm currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owm); err != nil {
		return nil, source.NewError(SourceName, source.FailureBadResponse, fmt.Errorf("decode weather response: %w", err))
	}

	return c.toReading(&owm), nil
}

// toReading translates the vendor payload into a weather reading.
func (c *Client) toReading(owm *currentWeatherResponse) *source.WeatherReading {
	condition := ""
	if len(owm.Weather) > 0 {
		condition = owm.Weather[0].Main
	}

	observedAt := time.Now()
	if owm.Dt > 0 {
		observedAt = time.Unix(owm.Dt, 0)
	}

	return &source.WeatherReading{
		Temperature: owm.Main.Temp,
		Humidity:    owm.Main.Humidity,
		Pressure:    owm.Main.Pressure,
		WindSpeed:   owm.Wind.Speed,
		CloudCover:  owm.Clouds.All,
		Visibility:  owm.Vis,
		Condition:   condition,
		ObservedAt:  observedAt,
	}
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
