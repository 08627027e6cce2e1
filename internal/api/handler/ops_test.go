package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyshield/skyshield/internal/api/handler"
	"github.com/skyshield/skyshield/internal/api/models"
	"github.com/skyshield/skyshield/internal/monitor"
	"github.com/skyshield/skyshield/internal/schedule"
	"github.com/skyshield/skyshield/internal/source/resilience"
)

// fakeScheduler implements handler.Scheduler for tests.
type fakeScheduler struct {
	latest     *monitor.CollectionSnapshot
	runOnceErr error
	state      schedule.State
}

func (f *fakeScheduler) Latest() (*monitor.CollectionSnapshot, bool) {
	return f.latest, f.latest != nil
}

func (f *fakeScheduler) RunOnce(_ context.Context) (*monitor.CollectionSnapshot, error) {
	if f.runOnceErr != nil {
		return nil, f.runOnceErr
	}
	return f.latest, nil
}

func (f *fakeScheduler) State() schedule.State {
	if f.state == "" {
		return schedule.StateIdle
	}
	return f.state
}

type fakeMetrics struct {
	snapshot map[string]interface{}
}

func (f *fakeMetrics) MetricsSnapshot() map[string]interface{} {
	return f.snapshot
}

func newOpsHandler(sched *fakeScheduler, registry *resilience.Registry) *handler.OpsHandler {
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	return handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   "1.2.3",
		BuildTime: "2026-01-15T00:00:00Z",
		Scheduler: sched,
		Registry:  registry,
		Metrics:   &fakeMetrics{snapshot: map[string]interface{}{"total_cycles": 5}},
	})
}

func TestHealthCheck(t *testing.T) {
	h := newOpsHandler(&fakeScheduler{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	h.HealthCheck(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Details["version"])
}

func TestReadinessCheck_NotReady(t *testing.T) {
	h := newOpsHandler(&fakeScheduler{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	w := httptest.NewRecorder()
	h.ReadinessCheck(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestReadinessCheck_Ready(t *testing.T) {
	h := newOpsHandler(&fakeScheduler{latest: sampleSnapshot()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	w := httptest.NewRecorder()
	h.ReadinessCheck(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestListSources(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("openweathermap", resilience.NewClient(resilience.DefaultClientConfig("openweathermap")))
	registry.Register("iqair", resilience.NewClient(resilience.DefaultClientConfig("iqair")))
	registry.RecordSuccess("iqair")
	registry.RecordFailure("openweathermap", errors.New("connection refused"))

	h := newOpsHandler(&fakeScheduler{}, registry)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources", http.NoBody)
	w := httptest.NewRecorder()
	h.ListSources(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SourcesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Sources, 2)
	// Sorted by name.
	assert.Equal(t, "iqair", resp.Sources[0].Name)
	assert.Equal(t, models.HealthStatusOK, resp.Sources[0].Status)
	assert.Equal(t, "closed", resp.Sources[0].CircuitState)
	assert.NotNil(t, resp.Sources[0].LastSuccessAt)

	assert.Equal(t, "openweathermap", resp.Sources[1].Name)
	assert.Equal(t, "connection refused", resp.Sources[1].LastError)
	assert.NotNil(t, resp.Sources[1].LastFailureAt)
}

func TestSystemStatus(t *testing.T) {
	snapshot := sampleSnapshot()
	h := newOpsHandler(&fakeScheduler{latest: snapshot, state: schedule.StateRunning}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", http.NoBody)
	w := httptest.NewRecorder()
	h.SystemStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RUNNING", resp.SchedulerState)
	assert.Equal(t, snapshot.Sequence, resp.LatestSequence)
	require.NotNil(t, resp.CollectedAt)
	assert.True(t, resp.CollectedAt.Equal(snapshot.CollectedAt))
	assert.Equal(t, float64(5), resp.Cycle["total_cycles"])
}

func TestSystemStatus_NoSnapshotYet(t *testing.T) {
	h := newOpsHandler(&fakeScheduler{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", http.NoBody)
	w := httptest.NewRecorder()
	h.SystemStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "IDLE", resp.SchedulerState)
	assert.Zero(t, resp.LatestSequence)
	assert.Nil(t, resp.CollectedAt)
}

func TestRefresh(t *testing.T) {
	snapshot := sampleSnapshot()
	h := newOpsHandler(&fakeScheduler{latest: snapshot}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/refresh", http.NoBody)
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.RefreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, snapshot.Sequence, resp.Sequence)
	assert.Equal(t, len(snapshot.Measurements), resp.Measurements)
	assert.True(t, resp.CollectedAt.Equal(snapshot.CollectedAt))
}

func TestRefresh_CycleInProgress(t *testing.T) {
	h := newOpsHandler(&fakeScheduler{runOnceErr: schedule.ErrCycleInProgress}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/refresh", http.NoBody)
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	require.Equal(t, http.StatusConflict, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeConflict, problem.Type)
}

func TestRefresh_Failure(t *testing.T) {
	h := newOpsHandler(&fakeScheduler{runOnceErr: errors.New("boom")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/refresh", http.NoBody)
	w := httptest.NewRecorder()
	h.Refresh(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeInternal, problem.Type)
}
