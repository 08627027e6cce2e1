// Package aggregate runs one collection cycle: it fans the configured
// cities out over a bounded worker pool, resolves each city independently,
// and fans the results back in as a single immutable snapshot. One slow or
// failing city never blocks the others.
package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/resolve"
)

// CityResolver produces the complete record for one city.
type CityResolver interface {
	ResolveCity(ctx context.Context, city monitor.City) resolve.CityRecord
}

// Config holds cycle settings.
type Config struct {
	// Cities to collect each cycle.
	Cities []monitor.City

	// Concurrency is the worker pool size (default 3).
	Concurrency int

	// Timeout bounds one whole cycle (default 2m).
	Timeout time.Duration
}

// JobConfig holds dependencies for creating a Job.
type JobConfig struct {
	Config   Config
	Resolver CityResolver
	Clock    clockwork.Clock
	Logger   zerolog.Logger
}

// Job executes collection cycles.
type Job struct {
	config   Config
	resolver CityResolver
	clock    clockwork.Clock
	logger   zerolog.Logger

	metrics *Metrics
}

// Metrics tracks cycle statistics.
type Metrics struct {
	mu sync.RWMutex

	TotalCycles       int64
	TotalMeasurements int64
	EstimatedValues   int64

	LastCycleAt       time.Time
	LastCycleDuration time.Duration
}

// NewJob creates a cycle job.
func NewJob(cfg JobConfig) *Job {
	config := cfg.Config
	if config.Concurrency < 1 {
		config.Concurrency = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Job{
		config:   config,
		resolver: cfg.Resolver,
		clock:    clock,
		logger:   cfg.Logger,
		metrics:  &Metrics{},
	}
}

// Run executes one collection cycle and returns the snapshot. The
// snapshot's Sequence is zero; the scheduler stamps it on publication.
// Run never fails: per-city resolution degrades internally.
func (j *Job) Run(ctx context.Context) *monitor.CollectionSnapshot {
	startedAt := j.clock.Now()
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	j.logger.Info().
		Int("cities", len(j.config.Cities)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting collection cycle")

	citiesChan := make(chan monitor.City, len(j.config.Cities))
	resultsChan := make(chan cityResult, len(j.config.Cities))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.cityWorker(ctx, citiesChan, resultsChan)
		}()
	}

	for _, c := range j.config.Cities {
		citiesChan <- c
	}
	close(citiesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	snapshot := &monitor.CollectionSnapshot{
		CollectedAt: startedAt,
		Weather:     make(map[monitor.CityKey]monitor.WeatherSnapshot, len(j.config.Cities)),
	}
	for r := range resultsChan {
		snapshot.Measurements = append(snapshot.Measurements, r.record.Measurements...)
		snapshot.Weather[r.city.Key] = r.record.Weather
	}

	duration := j.clock.Now().Sub(startedAt)
	summary := snapshot.Summarize()
	j.updateMetrics(summary, duration)

	j.logger.Info().
		Dur("duration", duration).
		Int("measurements", summary.Measurements).
		Int("estimated", summary.EstimatedCount).
		Float64("avg_aqi", summary.AvgAQI).
		Int("unhealthy_cities", summary.UnhealthyCities).
		Msg("collection cycle completed")

	return snapshot
}

type cityResult struct {
	city   monitor.City
	record resolve.CityRecord
}

// cityWorker drains the city channel even when ctx is already done:
// a timed-out cycle still resolves every remaining city, since source
// fetches fail immediately and the resolver degrades to estimates.
func (j *Job) cityWorker(ctx context.Context, cities <-chan monitor.City, results chan<- cityResult) {
	for city := range cities {
		results <- cityResult{city: city, record: j.resolver.ResolveCity(ctx, city)}
	}
}

func (j *Job) updateMetrics(s monitor.Summary, d time.Duration) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalCycles++
	j.metrics.TotalMeasurements += int64(s.Measurements)
	j.metrics.EstimatedValues += int64(s.EstimatedCount)
	j.metrics.LastCycleAt = j.clock.Now()
	j.metrics.LastCycleDuration = d
}

// GetMetrics returns a copy of the current metrics.
func (j *Job) GetMetrics() Metrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return Metrics{
		TotalCycles:       j.metrics.TotalCycles,
		TotalMeasurements: j.metrics.TotalMeasurements,
		EstimatedValues:   j.metrics.EstimatedValues,
		LastCycleAt:       j.metrics.LastCycleAt,
		LastCycleDuration: j.metrics.LastCycleDuration,
	}
}

// MetricsSnapshot returns the current metrics as a map for status
// endpoints.
func (j *Job) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_cycles":        m.TotalCycles,
		"total_measurements":  m.TotalMeasurements,
		"estimated_values":    m.EstimatedValues,
		"last_cycle_at":       m.LastCycleAt,
		"last_cycle_duration": m.LastCycleDuration.String(),
	}
}
