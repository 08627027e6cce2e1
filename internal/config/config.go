// Package config loads and validates the monitor configuration from the
// environment. Configuration problems are fatal: the process must not
// begin scheduling with a broken city list or threshold table.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/skyshield/skyshield/internal/aqi"
	"github.com/skyshield/skyshield/internal/monitor"
)

// Error describes missing or invalid configuration.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Config holds all monitor settings.
type Config struct {
	// Cities is the monitored city list. Every measurement and weather
	// snapshot must reference one of these.
	Cities []monitor.City

	// Thresholds is the per-pollutant health threshold table.
	Thresholds aqi.ThresholdTable

	// Interval between collection cycles.
	Interval time.Duration

	// Concurrency is the number of cities resolved in parallel per cycle.
	Concurrency int

	// CycleTimeout bounds a whole collection cycle.
	CycleTimeout time.Duration

	// SourceSpacing is the minimum spacing between calls to the same
	// upstream source.
	SourceSpacing time.Duration

	// Upstream credentials and timeouts, passed through to the adapters.
	IQAirAPIKey        string
	OpenWeatherAPIKey  string
	SourceFetchTimeout time.Duration

	// HTTP facade.
	HTTPAddr string

	// Logging.
	LogLevel string

	// Postgres sink; disabled when DSN settings are absent.
	PostgresEnabled bool

	// Pub/Sub sink; disabled when the project is absent.
	PubSubProjectID string
	PubSubTopic     string

	// Telemetry.
	OTLPEndpoint     string
	TelemetryEnabled bool
	Environment      string
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the result.
func Load() (*Config, error) {
	interval, err := parseDuration("MONITOR_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	cycleTimeout, err := parseDuration("MONITOR_CYCLE_TIMEOUT", "2m")
	if err != nil {
		return nil, err
	}
	spacing, err := parseDuration("MONITOR_SOURCE_SPACING", "1s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("MONITOR_FETCH_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	concurrency, convErr := strconv.Atoi(getEnvOrDefault("MONITOR_CONCURRENCY", "3"))
	if convErr != nil || concurrency < 1 {
		return nil, &Error{Field: "MONITOR_CONCURRENCY", Reason: "must be a positive integer"}
	}

	cities, err := loadCities()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Cities:             cities,
		Thresholds:         aqi.DefaultThresholds(),
		Interval:           interval,
		Concurrency:        concurrency,
		CycleTimeout:       cycleTimeout,
		SourceSpacing:      spacing,
		IQAirAPIKey:        os.Getenv("IQAIR_API_KEY"),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		SourceFetchTimeout: fetchTimeout,
		HTTPAddr:           getEnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		PostgresEnabled:    os.Getenv("DB_HOST") != "",
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:        getEnvOrDefault("PUBSUB_TOPIC", "skyshield-snapshots"),
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled:   os.Getenv("OTEL_ENABLED") == "true",
		Environment:        getEnvOrDefault("APP_ENV", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the city list and threshold table.
func (c *Config) Validate() error {
	if len(c.Cities) == 0 {
		return &Error{Field: "cities", Reason: "at least one city is required"}
	}

	seen := make(map[monitor.CityKey]bool, len(c.Cities))
	for _, city := range c.Cities {
		if city.Key.City == "" || city.Key.Country == "" {
			return &Error{Field: "cities", Reason: "city name and country are required"}
		}
		if city.Lat < -90 || city.Lat > 90 || city.Lon < -180 || city.Lon > 180 {
			return &Error{Field: "cities", Reason: fmt.Sprintf("invalid coordinates for %s", city.Key)}
		}
		if seen[city.Key] {
			return &Error{Field: "cities", Reason: fmt.Sprintf("duplicate city %s", city.Key)}
		}
		seen[city.Key] = true
	}

	if len(c.Thresholds) == 0 {
		return &Error{Field: "thresholds", Reason: "threshold table is required"}
	}
	for pollutant, t := range c.Thresholds {
		if !(t.Good < t.Moderate && t.Moderate < t.Bad) {
			return &Error{Field: "thresholds", Reason: fmt.Sprintf("%s boundaries must be strictly increasing", pollutant)}
		}
	}

	if c.Interval <= 0 {
		return &Error{Field: "interval", Reason: "must be positive"}
	}

	return nil
}

// loadCities returns the configured city list: a JSON file when
// MONITOR_CITIES_FILE is set, the built-in North American list otherwise.
func loadCities() ([]monitor.City, error) {
	path := os.Getenv("MONITOR_CITIES_FILE")
	if path == "" {
		return DefaultCities(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: "MONITOR_CITIES_FILE", Reason: err.Error()}
	}

	var entries []cityEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &Error{Field: "MONITOR_CITIES_FILE", Reason: "invalid JSON: " + err.Error()}
	}

	cities := make([]monitor.City, 0, len(entries))
	for _, e := range entries {
		cities = append(cities, monitor.City{
			Key:      monitor.CityKey{City: e.City, Country: e.Country},
			State:    e.State,
			Lat:      e.Lat,
			Lon:      e.Lon,
			Timezone: e.Timezone,
		})
	}
	return cities, nil
}

type cityEntry struct {
	City     string  `json:"city"`
	State    string  `json:"state"`
	Country  string  `json:"country"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
}

// DefaultCities returns the built-in North American monitoring list.
func DefaultCities() []monitor.City {
	return []monitor.City{
		{Key: monitor.CityKey{City: "New York", Country: "USA"}, State: "New York", Lat: 40.7128, Lon: -74.0060, Timezone: "America/New_York"},
		{Key: monitor.CityKey{City: "Los Angeles", Country: "USA"}, State: "California", Lat: 34.0522, Lon: -118.2437, Timezone: "America/Los_Angeles"},
		{Key: monitor.CityKey{City: "Chicago", Country: "USA"}, State: "Illinois", Lat: 41.8781, Lon: -87.6298, Timezone: "America/Chicago"},
		{Key: monitor.CityKey{City: "Toronto", Country: "Canada"}, State: "Ontario", Lat: 43.6532, Lon: -79.3832, Timezone: "America/Toronto"},
		{Key: monitor.CityKey{City: "Vancouver", Country: "Canada"}, State: "British Columbia", Lat: 49.2827, Lon: -123.1207, Timezone: "America/Vancouver"},
		{Key: monitor.CityKey{City: "Mexico City", Country: "Mexico"}, State: "Mexico City", Lat: 19.4326, Lon: -99.1332, Timezone: "America/Mexico_City"},
		{Key: monitor.CityKey{City: "Montreal", Country: "Canada"}, State: "Quebec", Lat: 45.5017, Lon: -73.5673, Timezone: "America/Montreal"},
		{Key: monitor.CityKey{City: "Houston", Country: "USA"}, State: "Texas", Lat: 29.7604, Lon: -95.3698, Timezone: "America/Chicago"},
	}
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := getEnvOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, &Error{Field: key, Reason: "invalid duration"}
	}
	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
