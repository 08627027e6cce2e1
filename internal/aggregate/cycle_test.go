package aggregate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyshield/skyshield/internal/config"
	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/resolve"
)

// fakeResolver produces a fixed per-city record and tracks concurrency.
type fakeResolver struct {
	mu          sync.Mutex
	calls       []monitor.CityKey
	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func (f *fakeResolver) ResolveCity(_ context.Context, city monitor.City) resolve.CityRecord {
	f.mu.Lock()
	f.calls = append(f.calls, city.Key)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	measurements := make([]monitor.Measurement, 0, len(monitor.AllPollutants)+1)
	for _, p := range monitor.AllPollutants {
		measurements = append(measurements, monitor.Measurement{
			City:       city.Key,
			Pollutant:  p,
			Value:      10,
			Derivation: monitor.DerivationObserved,
			Rating:     monitor.RatingGood,
		})
	}
	measurements = append(measurements, monitor.Measurement{
		City:       city.Key,
		Pollutant:  monitor.PollutantAQI,
		Value:      42,
		Derivation: monitor.DerivationDerived,
		Rating:     monitor.RatingGood,
	})

	return resolve.CityRecord{
		Measurements: measurements,
		Weather: monitor.WeatherSnapshot{
			City:       city.Key,
			Derivation: monitor.DerivationObserved,
		},
	}
}

func TestJobRunCollectsAllCities(t *testing.T) {
	cities := config.DefaultCities()
	resolver := &fakeResolver{}

	job := NewJob(JobConfig{
		Config:   Config{Cities: cities, Concurrency: 3},
		Resolver: resolver,
		Logger:   zerolog.Nop(),
	})

	snapshot := job.Run(context.Background())

	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Weather, len(cities))
	assert.Len(t, snapshot.Measurements, len(cities)*(len(monitor.AllPollutants)+1))
	assert.Len(t, resolver.calls, len(cities))
	assert.False(t, snapshot.CollectedAt.IsZero())
	assert.Zero(t, snapshot.Sequence)

	require.NoError(t, snapshot.Validate(cities))

	for _, c := range cities {
		assert.Contains(t, snapshot.Weather, c.Key)
		assert.Len(t, snapshot.CityMeasurements(c.Key), len(monitor.AllPollutants)+1)
	}
}

func TestJobRunBoundsConcurrency(t *testing.T) {
	resolver := &fakeResolver{delay: 20 * time.Millisecond}

	job := NewJob(JobConfig{
		Config:   Config{Cities: config.DefaultCities(), Concurrency: 2},
		Resolver: resolver,
		Logger:   zerolog.Nop(),
	})

	job.Run(context.Background())

	assert.LessOrEqual(t, resolver.maxInFlight, 2)
}

func TestJobRunMetrics(t *testing.T) {
	job := NewJob(JobConfig{
		Config:   Config{Cities: config.DefaultCities()},
		Resolver: &fakeResolver{},
		Logger:   zerolog.Nop(),
	})

	job.Run(context.Background())
	job.Run(context.Background())

	m := job.GetMetrics()
	assert.Equal(t, int64(2), m.TotalCycles)
	assert.Equal(t, int64(2*8*(len(monitor.AllPollutants)+1)), m.TotalMeasurements)
	assert.False(t, m.LastCycleAt.IsZero())

	snap := job.MetricsSnapshot()
	assert.Equal(t, int64(2), snap["total_cycles"])
}

func TestJobRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cities := config.DefaultCities()
	job := NewJob(JobConfig{
		Config:   Config{Cities: cities, Concurrency: 2},
		Resolver: resolve.New(resolve.Config{Logger: zerolog.Nop()}),
		Logger:   zerolog.Nop(),
	})

	snapshot := job.Run(ctx)

	// A cancelled or timed-out cycle still covers every city; the
	// resolver degrades each one to estimates instead of dropping it.
	require.NotNil(t, snapshot)
	require.Len(t, snapshot.Weather, len(cities))
	require.NoError(t, snapshot.Validate(cities))

	for _, m := range snapshot.Measurements {
		assert.Equal(t, monitor.DerivationEstimated, m.Derivation,
			"%s %s", m.City, m.Pollutant)
	}
	for key, w := range snapshot.Weather {
		assert.Equal(t, monitor.DerivationEstimated, w.Derivation, key.String())
	}
}

func TestJobDefaults(t *testing.T) {
	job := NewJob(JobConfig{
		Config:   Config{Cities: config.DefaultCities(), Concurrency: 0},
		Resolver: &fakeResolver{},
		Logger:   zerolog.Nop(),
	})

	assert.Equal(t, 3, job.config.Concurrency)
	assert.Equal(t, 2*time.Minute, job.config.Timeout)
}
