// Package pubsub publishes snapshot events to a Google Cloud Pub/Sub
// topic for downstream consumers. The event carries the region summary
// and per-city AQI, not the full measurement set; consumers needing full
// detail read the snapshot store.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/skyshield/skyshield/internal/monitor"
)

// SnapshotEvent is the wire payload for one published snapshot.
type SnapshotEvent struct {
	Sequence    uint64    `json:"sequence"`
	CollectedAt time.Time `json:"collected_at"`

	Cities          int     `json:"cities"`
	Measurements    int     `json:"measurements"`
	EstimatedCount  int     `json:"estimated_count"`
	AvgAQI          float64 `json:"avg_aqi"`
	MaxAQI          float64 `json:"max_aqi"`
	UnhealthyCities int     `json:"unhealthy_cities"`

	CityAQI []CityAQIEvent `json:"city_aqi"`
}

// CityAQIEvent is the per-city AQI entry of a snapshot event.
type CityAQIEvent struct {
	City       string  `json:"city"`
	Country    string  `json:"country"`
	AQI        float64 `json:"aqi"`
	Rating     string  `json:"rating"`
	Derivation string  `json:"derivation"`
}

// Config holds configuration for the Pub/Sub sink.
type Config struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// Sink publishes snapshot events to a Pub/Sub topic.
type Sink struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// New creates a Pub/Sub sink.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Sink{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Name identifies the sink in logs.
func (s *Sink) Name() string { return "pubsub" }

// Publish sends one snapshot event and waits for server acknowledgement.
func (s *Sink) Publish(ctx context.Context, snapshot *monitor.CollectionSnapshot) error {
	data, err := json.Marshal(BuildEvent(snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot event: %w", err)
	}

	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": "snapshot_published",
			"sequence":   fmt.Sprintf("%d", snapshot.Sequence),
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish snapshot %d: %w", snapshot.Sequence, err)
	}

	s.logger.Debug().
		Str("message_id", id).
		Str("topic", s.topic).
		Uint64("sequence", snapshot.Sequence).
		Msg("snapshot event published")

	return nil
}

// Close stops the publisher and closes the client.
func (s *Sink) Close() error {
	s.publisher.Stop()
	return s.client.Close()
}

// BuildEvent projects a snapshot onto its event payload.
func BuildEvent(snapshot *monitor.CollectionSnapshot) SnapshotEvent {
	summary := snapshot.Summarize()

	event := SnapshotEvent{
		Sequence:        snapshot.Sequence,
		CollectedAt:     snapshot.CollectedAt,
		Cities:          summary.Cities,
		Measurements:    summary.Measurements,
		EstimatedCount:  summary.EstimatedCount,
		AvgAQI:          summary.AvgAQI,
		MaxAQI:          summary.MaxAQI,
		UnhealthyCities: summary.UnhealthyCities,
	}

	for key := range snapshot.Weather {
		m, ok := snapshot.CityAQI(key)
		if !ok {
			continue
		}
		event.CityAQI = append(event.CityAQI, CityAQIEvent{
			City:       key.City,
			Country:    key.Country,
			AQI:        m.Value,
			Rating:     string(m.Rating),
			Derivation: string(m.Derivation),
		})
	}

	return event
}
