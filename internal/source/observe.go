package source

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/skyshield/skyshield/internal/monitor"
)

const meterName = "github.com/skyshield/skyshield/internal/source"

// HealthRecorder receives fetch outcomes per source. Satisfied by
// resilience.Registry.
type HealthRecorder interface {
	RecordSuccess(name string)
	RecordFailure(name string, err error)
}

// FetchMetrics holds the OpenTelemetry instruments for upstream fetches.
type FetchMetrics struct {
	fetchDuration metric.Float64Histogram
	fetchTotal    metric.Int64Counter
}

// NewFetchMetrics creates the fetch instruments on the global meter.
func NewFetchMetrics() (*FetchMetrics, error) {
	meter := otel.Meter(meterName)

	fetchDuration, err := meter.Float64Histogram(
		"source.fetch.duration",
		metric.WithDescription("Duration of upstream source fetches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	fetchTotal, err := meter.Int64Counter(
		"source.fetch.total",
		metric.WithDescription("Total number of upstream source fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	return &FetchMetrics{
		fetchDuration: fetchDuration,
		fetchTotal:    fetchTotal,
	}, nil
}

func (m *FetchMetrics) record(ctx context.Context, name, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("source.name", name),
		attribute.String("source.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}
	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.fetchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// ObservedAirQuality wraps an air quality source so every fetch records
// its outcome to the health registry and its latency to the meter.
// A nil metrics or health argument disables that half of the recording.
func ObservedAirQuality(s AirQualitySource, metrics *FetchMetrics, health HealthRecorder) AirQualitySource {
	return &observedAirQuality{inner: s, metrics: metrics, health: health}
}

type observedAirQuality struct {
	inner   AirQualitySource
	metrics *FetchMetrics
	health  HealthRecorder
}

func (s *observedAirQuality) Name() string { return s.inner.Name() }

func (s *observedAirQuality) FetchAirQuality(ctx context.Context, city monitor.City) ([]Reading, error) {
	start := time.Now()
	readings, err := s.inner.FetchAirQuality(ctx, city)
	s.metrics.record(ctx, s.inner.Name(), "air_quality", time.Since(start), err)
	s.recordHealth(err)
	return readings, err
}

func (s *observedAirQuality) recordHealth(err error) {
	if s.health == nil {
		return
	}
	if err != nil {
		s.health.RecordFailure(s.inner.Name(), err)
		return
	}
	s.health.RecordSuccess(s.inner.Name())
}

// ObservedWeather wraps a weather source with the same recording.
func ObservedWeather(s WeatherSource, metrics *FetchMetrics, health HealthRecorder) WeatherSource {
	return &observedWeather{inner: s, metrics: metrics, health: health}
}

type observedWeather struct {
	inner   WeatherSource
	metrics *FetchMetrics
	health  HealthRecorder
}

func (s *observedWeather) Name() string { return s.inner.Name() }

func (s *observedWeather) FetchWeather(ctx context.Context, city monitor.City) (*WeatherReading, error) {
	start := time.Now()
	reading, err := s.inner.FetchWeather(ctx, city)
	s.metrics.record(ctx, s.inner.Name(), "weather", time.Since(start), err)
	s.recordHealth(err)
	return reading, err
}

func (s *observedWeather) recordHealth(err error) {
	if s.health == nil {
		return
	}
	if err != nil {
		s.health.RecordFailure(s.inner.Name(), err)
		return
	}
	s.health.RecordSuccess(s.inner.Name())
}
