// Package sink defines where published snapshots go. The scheduler fans
// every collection snapshot out to all configured sinks; a failing sink
// is logged and skipped, never blocking publication to the others.
package sink

import (
	"context"

	"github.com/skyshield/skyshield/internal/monitor"
)

// Sink receives published collection snapshots.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Publish delivers one snapshot. Implementations must honor ctx
	// cancellation and must not retain the snapshot after returning.
	Publish(ctx context.Context, snapshot *monitor.CollectionSnapshot) error

	// Close releases sink resources. Publish must not be called after
	// Close.
	Close() error
}
