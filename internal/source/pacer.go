package source

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Pacer enforces a minimum spacing between calls to the same source.
// Cities resolve concurrently, but two fetches must never hit the same
// vendor at once; each caller reserves the next free slot and waits for
// it.
type Pacer struct {
	interval time.Duration
	clock    clockwork.Clock

	mu   sync.Mutex
	next map[string]time.Time
}

// NewPacer creates a pacer with the given minimum inter-call interval.
// A nil clock uses real time.
func NewPacer(interval time.Duration, clock clockwork.Clock) *Pacer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pacer{
		interval: interval,
		clock:    clock,
		next:     make(map[string]time.Time),
	}
}

// Wait blocks until the caller's reserved slot for the named source
// arrives, or the context is done. A zero or negative interval never
// blocks.
func (p *Pacer) Wait(ctx context.Context, source string) error {
	if p.interval <= 0 {
		return nil
	}

	now := p.clock.Now()

	p.mu.Lock()
	slot := p.next[source]
	if slot.Before(now) {
		slot = now
	}
	p.next[source] = slot.Add(p.interval)
	p.mu.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-p.clock.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
