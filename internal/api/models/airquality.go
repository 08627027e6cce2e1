// Package models defines the API request and response shapes.
package models

import (
	"time"

	"github.com/skyshield/skyshield/internal/monitor"
)

// MeasurementDTO is one pollutant measurement in API responses.
type MeasurementDTO struct {
	Pollutant   string    `json:"pollutant"`
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	Source      string    `json:"source"`
	Rating      string    `json:"rating"`
	Description string    `json:"description"`
	Derivation  string    `json:"derivation"`
	Timestamp   time.Time `json:"timestamp"`
}

// WeatherDTO is the weather record in API responses.
type WeatherDTO struct {
	Temperature      float64   `json:"temperature"`
	Humidity         float64   `json:"humidity"`
	Pressure         float64   `json:"pressure"`
	WindSpeed        float64   `json:"wind_speed"`
	CloudCover       float64   `json:"cloud_cover"`
	Visibility       float64   `json:"visibility"`
	Condition        string    `json:"condition"`
	DispersionImpact float64   `json:"dispersion_impact"`
	Source           string    `json:"source"`
	Derivation       string    `json:"derivation"`
	Timestamp        time.Time `json:"timestamp"`
}

// CityAirQuality is the full resolved record for one city.
type CityAirQuality struct {
	City         string           `json:"city"`
	Country      string           `json:"country"`
	Measurements []MeasurementDTO `json:"measurements"`
	Weather      *WeatherDTO      `json:"weather,omitempty"`
}

// SnapshotResponse is the full collection snapshot.
type SnapshotResponse struct {
	Sequence    uint64           `json:"sequence"`
	CollectedAt time.Time        `json:"collected_at"`
	Cities      []CityAirQuality `json:"cities"`
	Summary     SummaryDTO       `json:"summary"`
}

// SummaryDTO holds region-wide statistics for one snapshot.
type SummaryDTO struct {
	Cities          int     `json:"cities"`
	Measurements    int     `json:"measurements"`
	EstimatedCount  int     `json:"estimated_count"`
	AvgAQI          float64 `json:"avg_aqi"`
	MaxAQI          float64 `json:"max_aqi"`
	MinAQI          float64 `json:"min_aqi"`
	UnhealthyCities int     `json:"unhealthy_cities"`
}

// MeasurementFromMonitor converts a measurement to its DTO.
func MeasurementFromMonitor(m monitor.Measurement) MeasurementDTO {
	return MeasurementDTO{
		Pollutant:   string(m.Pollutant),
		Value:       m.Value,
		Unit:        m.Unit,
		Source:      m.Source,
		Rating:      string(m.Rating),
		Description: m.Description,
		Derivation:  string(m.Derivation),
		Timestamp:   m.Timestamp,
	}
}

// WeatherFromMonitor converts a weather snapshot to its DTO.
func WeatherFromMonitor(w monitor.WeatherSnapshot) *WeatherDTO {
	return &WeatherDTO{
		Temperature:      w.Temperature,
		Humidity:         w.Humidity,
		Pressure:         w.Pressure,
		WindSpeed:        w.WindSpeed,
		CloudCover:       w.CloudCover,
		Visibility:       w.Visibility,
		Condition:        w.Condition,
		DispersionImpact: w.DispersionImpact,
		Source:           w.Source,
		Derivation:       string(w.Derivation),
		Timestamp:        w.Timestamp,
	}
}

// SummaryFromMonitor converts snapshot summary statistics to their DTO.
func SummaryFromMonitor(s monitor.Summary) SummaryDTO {
	return SummaryDTO{
		Cities:          s.Cities,
		Measurements:    s.Measurements,
		EstimatedCount:  s.EstimatedCount,
		AvgAQI:          s.AvgAQI,
		MaxAQI:          s.MaxAQI,
		MinAQI:          s.MinAQI,
		UnhealthyCities: s.UnhealthyCities,
	}
}

// Alert is an active air quality alert for one city.
type Alert struct {
	City       string    `json:"city"`
	Country    string    `json:"country"`
	AQI        float64   `json:"aqi"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Derivation string    `json:"derivation"`
	Timestamp  time.Time `json:"timestamp"`
}

// AlertsResponse is the active alert list.
type AlertsResponse struct {
	Sequence    uint64    `json:"sequence"`
	GeneratedAt time.Time `json:"generated_at"`
	Alerts      []Alert   `json:"alerts"`
}

// RefreshResponse acknowledges a manual collection cycle.
type RefreshResponse struct {
	Sequence     uint64    `json:"sequence"`
	CollectedAt  time.Time `json:"collected_at"`
	Measurements int       `json:"measurements"`
}
