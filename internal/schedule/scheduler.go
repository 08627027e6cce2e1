// Package schedule drives periodic collection cycles and owns the
// published state: the latest snapshot, the monotone cycle sequence, and
// fan-out to the configured sinks.
package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/sink"
)

// ErrCycleInProgress is returned when a cycle is requested while the
// previous one is still running. Overlapping cycles are skipped, not
// queued.
var ErrCycleInProgress = errors.New("schedule: collection cycle already in progress")

// State is the scheduler's observable state.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
)

// CycleRunner executes one collection cycle. It never fails; degraded
// cycles still produce a snapshot.
type CycleRunner interface {
	Run(ctx context.Context) *monitor.CollectionSnapshot
}

// Config holds scheduler dependencies.
type Config struct {
	// Interval between cycle starts (default 5m).
	Interval time.Duration

	Runner CycleRunner

	// Sinks receive every published snapshot.
	Sinks []sink.Sink

	Clock  clockwork.Clock
	Logger zerolog.Logger
}

// Scheduler runs collection cycles on a fixed interval and publishes the
// results atomically.
type Scheduler struct {
	interval time.Duration
	runner   CycleRunner
	sinks    []sink.Sink
	clock    clockwork.Clock
	log      zerolog.Logger

	mu     sync.RWMutex
	latest *monitor.CollectionSnapshot

	sequence atomic.Uint64
	running  atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a scheduler.
func New(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Scheduler{
		interval: interval,
		runner:   cfg.Runner,
		sinks:    cfg.Sinks,
		clock:    clock,
		log:      cfg.Logger,
		stop:     make(chan struct{}),
	}
}

// Start runs an immediate first cycle and then one cycle per interval
// until the context is cancelled or Stop is called. It blocks; run it in
// its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")

	if _, err := s.runCycle(ctx); err != nil {
		s.log.Warn().Err(err).Msg("initial cycle skipped")
	}

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped: context cancelled")
			return
		case <-s.stop:
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.Chan():
			if _, err := s.runCycle(ctx); err != nil {
				s.log.Warn().Err(err).Msg("cycle skipped")
			}
		}
	}
}

// Stop requests a cooperative shutdown. A cycle already in flight runs to
// completion; no new cycle starts. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// RunOnce triggers a single cycle outside the periodic cadence, for
// manual refresh. Returns ErrCycleInProgress when a cycle is already
// running.
func (s *Scheduler) RunOnce(ctx context.Context) (*monitor.CollectionSnapshot, error) {
	return s.runCycle(ctx)
}

// Latest returns the most recently published snapshot. The boolean is
// false before the first cycle completes.
func (s *Scheduler) Latest() (*monitor.CollectionSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// State reports whether a cycle is currently running.
func (s *Scheduler) State() State {
	if s.running.Load() {
		return StateRunning
	}
	return StateIdle
}

// runCycle executes one cycle and publishes the result. The overlap
// guard makes concurrent calls skip rather than pile up.
func (s *Scheduler) runCycle(ctx context.Context) (*monitor.CollectionSnapshot, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)

	snapshot := s.runner.Run(ctx)
	snapshot.Sequence = s.sequence.Add(1)

	s.publish(ctx, snapshot)

	s.mu.Lock()
	s.latest = snapshot
	s.mu.Unlock()

	s.log.Info().
		Uint64("sequence", snapshot.Sequence).
		Int("measurements", len(snapshot.Measurements)).
		Msg("snapshot published")

	return snapshot, nil
}

// publish fans the snapshot out to every sink. Sink failures are
// isolated: one broken sink never blocks the others or the cycle.
func (s *Scheduler) publish(ctx context.Context, snapshot *monitor.CollectionSnapshot) {
	for _, sk := range s.sinks {
		if err := sk.Publish(ctx, snapshot); err != nil {
			s.log.Error().
				Err(err).
				Str("sink", sk.Name()).
				Uint64("sequence", snapshot.Sequence).
				Msg("sink publish failed")
		}
	}
}
