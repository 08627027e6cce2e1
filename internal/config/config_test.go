package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyshield/skyshield/internal/aqi"
	"github.com/skyshield/skyshield/internal/config"
	"github.com/skyshield/skyshield/internal/monitor"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Len(t, cfg.Cities, 8)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.PostgresEnabled)
	assert.NotEmpty(t, cfg.Thresholds)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL", "30s")
	t.Setenv("MONITOR_CONCURRENCY", "5")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("IQAIR_API_KEY", "abc")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "abc", cfg.IQAirAPIKey)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad interval", "MONITOR_INTERVAL", "soon"},
		{"negative interval", "MONITOR_INTERVAL", "-1m"},
		{"bad concurrency", "MONITOR_CONCURRENCY", "many"},
		{"zero concurrency", "MONITOR_CONCURRENCY", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load()
			require.Error(t, err)

			var cfgErr *config.Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadCitiesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cities.json")
	payload := `[{"city":"Berlin","country":"Germany","lat":52.52,"lon":13.405,"timezone":"Europe/Berlin"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	t.Setenv("MONITOR_CITIES_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Len(t, cfg.Cities, 1)
	assert.Equal(t, monitor.CityKey{City: "Berlin", Country: "Germany"}, cfg.Cities[0].Key)
	assert.Equal(t, "Europe/Berlin", cfg.Cities[0].Timezone)
}

func TestLoadCitiesFileMissing(t *testing.T) {
	t.Setenv("MONITOR_CITIES_FILE", filepath.Join(t.TempDir(), "nope.json"))

	_, err := config.Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Cities:     config.DefaultCities(),
			Thresholds: aqi.DefaultThresholds(),
			Interval:   time.Minute,
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("no cities", func(t *testing.T) {
		cfg := valid()
		cfg.Cities = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate city", func(t *testing.T) {
		cfg := valid()
		cfg.Cities = append(cfg.Cities, cfg.Cities[0])
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad coordinates", func(t *testing.T) {
		cfg := valid()
		cfg.Cities[0].Lat = 99
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-increasing thresholds", func(t *testing.T) {
		cfg := valid()
		bad := cfg.Thresholds[monitor.PollutantPM25]
		bad.Moderate = bad.Bad
		cfg.Thresholds[monitor.PollutantPM25] = bad
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero interval", func(t *testing.T) {
		cfg := valid()
		cfg.Interval = 0
		assert.Error(t, cfg.Validate())
	})
}
