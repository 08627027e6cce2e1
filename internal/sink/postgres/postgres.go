// Package postgres persists published snapshots to PostgreSQL. Each
// snapshot becomes one header row plus one row per measurement and per
// city weather record, written in a single batch.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/skyshield/skyshield/internal/monitor"
)

// DB is the subset of pgxpool.Pool the sink needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Sink writes snapshots to PostgreSQL.
type Sink struct {
	db  DB
	log zerolog.Logger
}

// New creates a PostgreSQL sink. The pool is owned by the caller.
func New(db DB, logger zerolog.Logger) *Sink {
	return &Sink{db: db, log: logger}
}

// Name identifies the sink in logs.
func (s *Sink) Name() string { return "postgres" }

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id UUID PRIMARY KEY,
	sequence BIGINT NOT NULL,
	collected_at TIMESTAMPTZ NOT NULL,
	measurement_count INT NOT NULL,
	estimated_count INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS measurements (
	snapshot_id UUID NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	city TEXT NOT NULL,
	country TEXT NOT NULL,
	pollutant TEXT NOT NULL,
	value DOUBLE PRECISION NOT NULL,
	unit TEXT NOT NULL,
	source TEXT NOT NULL,
	rating TEXT NOT NULL,
	description TEXT NOT NULL,
	derivation TEXT NOT NULL,
	measured_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS weather_snapshots (
	snapshot_id UUID NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	city TEXT NOT NULL,
	country TEXT NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	humidity DOUBLE PRECISION NOT NULL,
	pressure DOUBLE PRECISION NOT NULL,
	wind_speed DOUBLE PRECISION NOT NULL,
	cloud_cover DOUBLE PRECISION NOT NULL,
	visibility DOUBLE PRECISION NOT NULL,
	condition TEXT NOT NULL,
	dispersion_impact DOUBLE PRECISION NOT NULL,
	source TEXT NOT NULL,
	derivation TEXT NOT NULL,
	measured_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_measurements_snapshot ON measurements (snapshot_id);
CREATE INDEX IF NOT EXISTS idx_weather_snapshot ON weather_snapshots (snapshot_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_sequence ON snapshots (sequence);
`

// EnsureSchema creates the snapshot tables if they do not exist.
func (s *Sink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create snapshot schema: %w", err)
	}
	return nil
}

// Publish writes one snapshot and all its rows in a single batch.
func (s *Sink) Publish(ctx context.Context, snapshot *monitor.CollectionSnapshot) error {
	id := uuid.New()
	summary := snapshot.Summarize()

	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO snapshots (id, sequence, collected_at, measurement_count, estimated_count)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, int64(snapshot.Sequence), snapshot.CollectedAt, summary.Measurements, summary.EstimatedCount,
	)

	for _, m := range snapshot.Measurements {
		batch.Queue(
			`INSERT INTO measurements
			 (snapshot_id, city, country, pollutant, value, unit, source, rating, description, derivation, measured_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			id, m.City.City, m.City.Country, string(m.Pollutant), m.Value, m.Unit,
			m.Source, string(m.Rating), m.Description, string(m.Derivation), m.Timestamp,
		)
	}

	for _, w := range snapshot.Weather {
		batch.Queue(
			`INSERT INTO weather_snapshots
			 (snapshot_id, city, country, temperature, humidity, pressure, wind_speed,
			  cloud_cover, visibility, condition, dispersion_impact, source, derivation, measured_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			id, w.City.City, w.City.Country, w.Temperature, w.Humidity, w.Pressure, w.WindSpeed,
			w.CloudCover, w.Visibility, w.Condition, w.DispersionImpact, w.Source, string(w.Derivation), w.Timestamp,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("snapshot %d batch statement %d: %w", snapshot.Sequence, i, err)
		}
	}

	s.log.Debug().
		Uint64("sequence", snapshot.Sequence).
		Int("statements", batch.Len()).
		Msg("snapshot persisted")

	return nil
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *Sink) Close() error { return nil }
