package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyshield/skyshield/internal/source/resilience"
)

func TestRegistry_RegisterAndHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	client := resilience.NewClient(resilience.DefaultClientConfig("iqair"))

	registry.Register("iqair", client)

	assert.Equal(t, 1, registry.SourceCount())

	health := registry.Health("iqair")
	require.NotNil(t, health)
	assert.Equal(t, "iqair", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.False(t, health.IsDegraded())

	assert.Nil(t, registry.Health("unknown"))
}

func TestRegistry_RecordSuccessAndFailure(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("openweathermap", resilience.NewClient(resilience.DefaultClientConfig("openweathermap")))

	health := registry.Health("openweathermap")
	require.NotNil(t, health)
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	registry.RecordSuccess("openweathermap")
	registry.RecordFailure("openweathermap", errors.New("connection reset"))

	health = registry.Health("openweathermap")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.Equal(t, "connection reset", health.LastError)
}

func TestRegistry_AllHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("iqair", resilience.NewClient(resilience.DefaultClientConfig("iqair")))
	registry.Register("openweathermap", resilience.NewClient(resilience.DefaultClientConfig("openweathermap")))

	all := registry.AllHealth()
	assert.Len(t, all, 2)

	names := map[string]bool{}
	for _, h := range all {
		names[h.Name] = true
	}
	assert.True(t, names["iqair"])
	assert.True(t, names["openweathermap"])
}
