package handler

import (
	"net/http"
	"sort"

	"github.com/skyshield/skyshield/internal/api/models"
	"github.com/skyshield/skyshield/internal/api/response"
	"github.com/skyshield/skyshield/internal/monitor"
)

// Alert levels, ordered by severity.
const (
	AlertLevelGood          = "GOOD"
	AlertLevelModerate      = "MODERATE"
	AlertLevelUnhealthy     = "UNHEALTHY"
	AlertLevelVeryUnhealthy = "VERY_UNHEALTHY"
	AlertLevelHazardous     = "HAZARDOUS"
)

// AlertHandler serves per-city air quality alerts.
type AlertHandler struct {
	snapshots SnapshotProvider
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(snapshots SnapshotProvider) *AlertHandler {
	return &AlertHandler{snapshots: snapshots}
}

// ListAlerts handles GET /v1/alerts - one alert entry per monitored
// city, most severe first. Cities with good air still get an advisory.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshots.Latest()
	if !ok {
		response.ServiceUnavailable(w, r, "no collection cycle has completed yet")
		return
	}

	resp := models.AlertsResponse{
		Sequence:    snapshot.Sequence,
		GeneratedAt: snapshot.CollectedAt,
		Alerts:      buildAlerts(snapshot),
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// buildAlerts builds one alert per city, most severe first.
func buildAlerts(s *monitor.CollectionSnapshot) []models.Alert {
	alerts := make([]models.Alert, 0, len(s.Weather))
	for key := range s.Weather {
		m, ok := s.CityAQI(key)
		if !ok {
			continue
		}
		level, message := AlertLevel(m.Value)
		alerts = append(alerts, models.Alert{
			City:       key.City,
			Country:    key.Country,
			AQI:        m.Value,
			Level:      level,
			Message:    message,
			Derivation: string(m.Derivation),
			Timestamp:  m.Timestamp,
		})
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].AQI != alerts[j].AQI {
			return alerts[i].AQI > alerts[j].AQI
		}
		return alerts[i].City < alerts[j].City
	})
	return alerts
}

// AlertLevel maps a composite AQI to an alert level and advisory message.
func AlertLevel(aqi float64) (string, string) {
	switch {
	case aqi >= 300:
		return AlertLevelHazardous, "Health emergency: avoid all outdoor activity"
	case aqi >= 200:
		return AlertLevelVeryUnhealthy, "Stay indoors and keep windows closed"
	case aqi >= 150:
		return AlertLevelUnhealthy, "Sensitive groups should avoid outdoor activity"
	case aqi >= 100:
		return AlertLevelModerate, "Limit prolonged outdoor exertion"
	default:
		return AlertLevelGood, "Air quality is acceptable"
	}
}
