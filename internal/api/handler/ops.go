package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/skyshield/skyshield/internal/api/models"
	"github.com/skyshield/skyshield/internal/api/response"
	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/schedule"
	"github.com/skyshield/skyshield/internal/source/resilience"
)

// Scheduler is the scheduler surface the ops endpoints need.
type Scheduler interface {
	Latest() (*monitor.CollectionSnapshot, bool)
	RunOnce(ctx context.Context) (*monitor.CollectionSnapshot, error)
	State() schedule.State
}

// CycleMetrics exposes collection cycle statistics.
type CycleMetrics interface {
	MetricsSnapshot() map[string]interface{}
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	scheduler Scheduler
	registry  *resilience.Registry
	metrics   CycleMetrics
}

// OpsHandlerConfig holds dependencies for the ops handler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Scheduler Scheduler
	Registry  *resilience.Registry
	Metrics   CycleMetrics
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		scheduler: cfg.Scheduler,
		registry:  cfg.Registry,
		metrics:   cfg.Metrics,
	}
}

// HealthCheck handles GET /healthz - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now(),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /readyz. The service is ready once the first
// collection cycle has published a snapshot.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.scheduler.Latest(); !ok {
		response.ServiceUnavailable(w, r, "waiting for first collection cycle")
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now(),
	})
}

// ListSources handles GET /v1/sources - upstream source health.
func (h *OpsHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	all := h.registry.AllHealth()
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	resp := models.SourcesResponse{Sources: make([]models.SourceStatus, 0, len(all))}
	for _, sh := range all {
		resp.Sources = append(resp.Sources, models.SourceStatus{
			Name:          sh.Name,
			Status:        sourceStatus(sh),
			CircuitState:  sh.CircuitState.String(),
			LastSuccessAt: sh.LastSuccessAt,
			LastFailureAt: sh.LastFailureAt,
			LastError:     sh.LastError,
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// SystemStatus handles GET /v1/status - scheduler state and cycle stats.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{
		SchedulerState: string(h.scheduler.State()),
		Cycle:          h.metrics.MetricsSnapshot(),
	}
	if latest, ok := h.scheduler.Latest(); ok {
		resp.LatestSequence = latest.Sequence
		resp.CollectedAt = &latest.CollectedAt
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// Refresh handles POST /v1/refresh - triggers one collection cycle
// outside the periodic cadence.
func (h *OpsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.scheduler.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, schedule.ErrCycleInProgress) {
			response.Conflict(w, r, "a collection cycle is already running")
			return
		}
		response.InternalError(w, r, "collection cycle failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.RefreshResponse{
		Sequence:     snapshot.Sequence,
		CollectedAt:  snapshot.CollectedAt,
		Measurements: len(snapshot.Measurements),
	})
}

func sourceStatus(sh *resilience.SourceHealth) string {
	switch sh.CircuitState {
	case gobreaker.StateClosed:
		return models.HealthStatusOK
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusDown
	}
}
