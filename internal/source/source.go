// Package source defines the contract every upstream data source must
// implement, the adapter failure taxonomy, and call pacing against vendor
// rate limits. Concrete vendor adapters live in subpackages; the rest of
// the system is polymorphic over these interfaces and never sees a
// vendor payload shape.
package source

import (
	"context"
	"time"

	"github.com/skyshield/skyshield/internal/monitor"
)

// Reading is one raw pollutant reading as translated by an adapter.
// A Pollutant of monitor.PollutantAQI carries the vendor's composite AQI.
type Reading struct {
	Pollutant  monitor.Pollutant
	Value      float64
	Unit       string
	ObservedAt time.Time
}

// WeatherReading is a raw weather observation as translated by an adapter.
type WeatherReading struct {
	Temperature float64 // °C
	Humidity    float64 // percent
	Pressure    float64 // hPa
	WindSpeed   float64 // m/s
	CloudCover  float64 // percent
	Visibility  float64 // meters
	Condition   string
	ObservedAt  time.Time
}

// AirQualitySource fetches pollutant readings for a city. An empty slice
// with a nil error means the vendor had no data for the city.
type AirQualitySource interface {
	// Name identifies the source in logs, measurements, and health checks.
	Name() string

	FetchAirQuality(ctx context.Context, city monitor.City) ([]Reading, error)
}

// WeatherSource fetches a weather observation for a city.
type WeatherSource interface {
	Name() string

	FetchWeather(ctx context.Context, city monitor.City) (*WeatherReading, error)
}
