package models

import "time"

// Health status values.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusDown     = "down"
)

// Health is the liveness/readiness response.
type Health struct {
	Status  string                 `json:"status"`
	Time    time.Time              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SourceStatus describes one upstream source's health.
type SourceStatus struct {
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	CircuitState  string     `json:"circuit_state"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// SourcesResponse lists all registered upstream sources.
type SourcesResponse struct {
	Sources []SourceStatus `json:"sources"`
}

// StatusResponse reports scheduler state and cycle statistics.
type StatusResponse struct {
	SchedulerState string                 `json:"scheduler_state"`
	LatestSequence uint64                 `json:"latest_sequence"`
	CollectedAt    *time.Time             `json:"collected_at,omitempty"`
	Cycle          map[string]interface{} `json:"cycle"`
}
