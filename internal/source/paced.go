package source

import (
	"context"

	"github.com/skyshield/skyshield/internal/monitor"
)

// PacedAirQuality wraps an air quality source so every fetch first waits
// for the pacer's per-source slot. Cities still resolve concurrently;
// only calls to the same vendor are spaced out.
func PacedAirQuality(p *Pacer, s AirQualitySource) AirQualitySource {
	return &pacedAirQuality{pacer: p, inner: s}
}

type pacedAirQuality struct {
	pacer *Pacer
	inner AirQualitySource
}

func (s *pacedAirQuality) Name() string { return s.inner.Name() }

func (s *pacedAirQuality) FetchAirQuality(ctx context.Context, city monitor.City) ([]Reading, error) {
	if err := s.pacer.Wait(ctx, s.inner.Name()); err != nil {
		return nil, NewError(s.inner.Name(), FailureNetwork, err)
	}
	return s.inner.FetchAirQuality(ctx, city)
}

// PacedWeather wraps a weather source with the same per-source pacing.
func PacedWeather(p *Pacer, s WeatherSource) WeatherSource {
	return &pacedWeather{pacer: p, inner: s}
}

type pacedWeather struct {
	pacer *Pacer
	inner WeatherSource
}

func (s *pacedWeather) Name() string { return s.inner.Name() }

func (s *pacedWeather) FetchWeather(ctx context.Context, city monitor.City) (*WeatherReading, error) {
	if err := s.pacer.Wait(ctx, s.inner.Name()); err != nil {
		return nil, NewError(s.inner.Name(), FailureNetwork, err)
	}
	return s.inner.FetchWeather(ctx, city)
}
