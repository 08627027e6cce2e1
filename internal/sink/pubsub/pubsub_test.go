package pubsub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyshield/skyshield/internal/monitor"
)

func TestBuildEvent(t *testing.T) {
	toronto := monitor.CityKey{City: "Toronto", Country: "Canada"}
	houston := monitor.CityKey{City: "Houston", Country: "USA"}
	now := time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)

	snapshot := &monitor.CollectionSnapshot{
		Sequence:    12,
		CollectedAt: now,
		Measurements: []monitor.Measurement{
			{City: toronto, Pollutant: monitor.PollutantAQI, Value: 64, Rating: monitor.RatingModerate, Derivation: monitor.DerivationObserved},
			{City: toronto, Pollutant: monitor.PollutantPM25, Value: 18.2, Rating: monitor.RatingModerate, Derivation: monitor.DerivationObserved},
			{City: houston, Pollutant: monitor.PollutantAQI, Value: 155, Rating: monitor.RatingUnhealthy, Derivation: monitor.DerivationEstimated},
		},
		Weather: map[monitor.CityKey]monitor.WeatherSnapshot{
			toronto: {City: toronto},
			houston: {City: houston},
		},
	}

	event := BuildEvent(snapshot)

	assert.Equal(t, uint64(12), event.Sequence)
	assert.Equal(t, now, event.CollectedAt)
	assert.Equal(t, 2, event.Cities)
	assert.Equal(t, 3, event.Measurements)
	assert.Equal(t, 1, event.EstimatedCount)
	assert.Equal(t, 1, event.UnhealthyCities)
	assert.InDelta(t, 155.0, event.MaxAQI, 0.001)

	require.Len(t, event.CityAQI, 2)
	byCity := map[string]CityAQIEvent{}
	for _, c := range event.CityAQI {
		byCity[c.City] = c
	}
	assert.InDelta(t, 64.0, byCity["Toronto"].AQI, 0.001)
	assert.Equal(t, "observed", byCity["Toronto"].Derivation)
	assert.Equal(t, "UNHEALTHY", byCity["Houston"].Rating)
}

func TestSnapshotEventJSONShape(t *testing.T) {
	event := SnapshotEvent{Sequence: 3, CityAQI: []CityAQIEvent{{City: "Toronto", Country: "Canada", AQI: 50}}}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"sequence":3`)
	assert.Contains(t, string(data), `"city_aqi"`)
	assert.Contains(t, string(data), `"avg_aqi"`)
}
