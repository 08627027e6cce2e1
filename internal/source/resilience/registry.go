package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// SourceHealth describes the health of one upstream source.
type SourceHealth struct {
	// Name is the source identifier.
	Name string

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts

	// LastSuccessAt is the timestamp of the last successful fetch.
	LastSuccessAt *time.Time

	// LastFailureAt is the timestamp of the last failed fetch.
	LastFailureAt *time.Time

	// LastError is the most recent error message, if any.
	LastError string
}

// IsHealthy reports whether the source circuit is closed.
func (h *SourceHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports whether the source circuit is half-open.
func (h *SourceHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// Registry tracks registered sources and their health. One instance is
// created at startup and shared between the adapters and the ops API.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*registeredSource
}

type registeredSource struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]*registeredSource),
	}
}

// Register adds a source client to the registry.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[name] = &registeredSource{client: client}
}

// RecordSuccess records a successful fetch for a source.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sources[name]; ok {
		now := time.Now()
		s.lastSuccessAt = &now
	}
}

// RecordFailure records a failed fetch for a source.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sources[name]; ok {
		now := time.Now()
		s.lastFailureAt = &now
		if err != nil {
			s.lastError = err.Error()
		}
	}
}

// Health returns the health of one source, or nil if unknown.
func (r *Registry) Health(name string) *SourceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[name]
	if !ok {
		return nil
	}
	return snapshotHealth(name, s)
}

// AllHealth returns the health of every registered source.
func (r *Registry) AllHealth() []*SourceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*SourceHealth, 0, len(r.sources))
	for name, s := range r.sources {
		health = append(health, snapshotHealth(name, s))
	}
	return health
}

// SourceCount returns the number of registered sources.
func (r *Registry) SourceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

func snapshotHealth(name string, s *registeredSource) *SourceHealth {
	return &SourceHealth{
		Name:          name,
		CircuitState:  s.client.CircuitBreakerState(),
		Counts:        s.client.CircuitBreakerCounts(),
		LastSuccessAt: s.lastSuccessAt,
		LastFailureAt: s.lastFailureAt,
		LastError:     s.lastError,
	}
}
