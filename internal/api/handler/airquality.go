// Package handler provides HTTP handlers for the SkyShield API.
package handler

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skyshield/skyshield/internal/api/models"
	"github.com/skyshield/skyshield/internal/api/response"
	"github.com/skyshield/skyshield/internal/monitor"
)

// SnapshotProvider exposes the latest published collection snapshot.
type SnapshotProvider interface {
	Latest() (*monitor.CollectionSnapshot, bool)
}

// AirQualityHandler serves the resolved air quality data.
type AirQualityHandler struct {
	snapshots SnapshotProvider
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(snapshots SnapshotProvider) *AirQualityHandler {
	return &AirQualityHandler{snapshots: snapshots}
}

// GetSnapshot handles GET /v1/airquality - the latest snapshot for all
// cities. An optional ?pollutant= query filters measurements to one kind.
func (h *AirQualityHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshots.Latest()
	if !ok {
		response.ServiceUnavailable(w, r, "no collection cycle has completed yet")
		return
	}

	filter := monitor.Pollutant(r.URL.Query().Get("pollutant"))
	if filter != "" && !knownPollutant(filter) {
		response.BadRequest(w, r, "unknown pollutant", []models.FieldError{
			{Field: "pollutant", Message: "must be one of PM2_5, NO2, O3, CO2, US_AQI", Code: "invalid_enum"},
		})
		return
	}

	resp := models.SnapshotResponse{
		Sequence:    snapshot.Sequence,
		CollectedAt: snapshot.CollectedAt,
		Cities:      citiesFromSnapshot(snapshot, filter),
		Summary:     models.SummaryFromMonitor(snapshot.Summarize()),
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// GetCity handles GET /v1/airquality/{city} - one city's record.
func (h *AirQualityHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.snapshots.Latest()
	if !ok {
		response.ServiceUnavailable(w, r, "no collection cycle has completed yet")
		return
	}

	name := chi.URLParam(r, "city")
	for key := range snapshot.Weather {
		if !strings.EqualFold(key.City, name) {
			continue
		}
		response.JSON(w, r, http.StatusOK, cityRecord(snapshot, key))
		return
	}

	response.NotFound(w, r, "city is not monitored: "+name)
}

func citiesFromSnapshot(s *monitor.CollectionSnapshot, filter monitor.Pollutant) []models.CityAirQuality {
	keys := make([]monitor.CityKey, 0, len(s.Weather))
	for key := range s.Weather {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].City < keys[j].City })

	cities := make([]models.CityAirQuality, 0, len(keys))
	for _, key := range keys {
		record := cityRecord(s, key)
		if filter != "" {
			var kept []models.MeasurementDTO
			for _, m := range record.Measurements {
				if m.Pollutant == string(filter) {
					kept = append(kept, m)
				}
			}
			record.Measurements = kept
		}
		cities = append(cities, record)
	}
	return cities
}

func cityRecord(s *monitor.CollectionSnapshot, key monitor.CityKey) models.CityAirQuality {
	record := models.CityAirQuality{
		City:    key.City,
		Country: key.Country,
	}
	for _, m := range s.CityMeasurements(key) {
		record.Measurements = append(record.Measurements, models.MeasurementFromMonitor(m))
	}
	if w, ok := s.Weather[key]; ok {
		record.Weather = models.WeatherFromMonitor(w)
	}
	return record
}

func knownPollutant(p monitor.Pollutant) bool {
	if p == monitor.PollutantAQI {
		return true
	}
	for _, known := range monitor.AllPollutants {
		if p == known {
			return true
		}
	}
	return false
}
