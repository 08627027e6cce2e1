package response_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyshield/skyshield/internal/api/middleware"
	"github.com/skyshield/skyshield/internal/api/models"
	"github.com/skyshield/skyshield/internal/api/response"
)

// requestWithID builds a request whose context carries a request ID,
// the way the RequestID middleware would.
func requestWithID(t *testing.T, path string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	var captured *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		captured = r
	})).ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, captured)
	return captured
}

func TestJSON(t *testing.T) {
	req := requestWithID(t, "/v1/airquality")
	w := httptest.NewRecorder()

	response.JSON(w, req, http.StatusOK, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("X-Request-Id"), "req_")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestJSON_NilBody(t *testing.T) {
	req := requestWithID(t, "/v1/airquality")
	w := httptest.NewRecorder()

	response.JSON(w, req, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestJSON_NoRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/airquality", http.NoBody)
	req = req.WithContext(context.Background())
	w := httptest.NewRecorder()

	response.JSON(w, req, http.StatusOK, map[string]string{"ok": "yes"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Request-Id"))
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter, r *http.Request)
		wantStatus int
		wantType   string
	}{
		{
			name: "bad request",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.BadRequest(w, r, "bad pollutant", []models.FieldError{{Field: "pollutant", Message: "unknown"}})
			},
			wantStatus: http.StatusBadRequest,
			wantType:   models.ProblemTypeValidation,
		},
		{
			name: "not found",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.NotFound(w, r, "no such city")
			},
			wantStatus: http.StatusNotFound,
			wantType:   models.ProblemTypeNotFound,
		},
		{
			name: "conflict",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.Conflict(w, r, "cycle running")
			},
			wantStatus: http.StatusConflict,
			wantType:   models.ProblemTypeConflict,
		},
		{
			name: "internal error",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.InternalError(w, r, "boom")
			},
			wantStatus: http.StatusInternalServerError,
			wantType:   models.ProblemTypeInternal,
		},
		{
			name: "service unavailable",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.ServiceUnavailable(w, r, "warming up")
			},
			wantStatus: http.StatusServiceUnavailable,
			wantType:   models.ProblemTypeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithID(t, "/v1/some/path")
			w := httptest.NewRecorder()

			tt.write(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

			var problem models.Problem
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/v1/some/path", problem.Instance)
			assert.Contains(t, problem.TraceID, "req_")
		})
	}
}
