package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imranq2/language-model-gateway/internal/logging"
)

type nopHealthBackend struct{}

func (nopHealthBackend) Log(level, component, category, requestID, message string, fields map[string]interface{}) {
}

func newTestHealthManager(config HealthConfig) *HealthManager {
	return NewHealthManager(config, logging.New(context.Background(), nopHealthBackend{}))
}

func TestHealthManagerStartsHealthy(t *testing.T) {
	hm := newTestHealthManager(DefaultHealthConfig())
	assert.True(t, hm.IsHealthy("https://a.example"))
}

func TestHealthManagerOpensCircuitAtThreshold(t *testing.T) {
	config := HealthConfig{FailureThreshold: 2, BackoffDuration: time.Hour, MaxBackoffDuration: time.Hour}
	hm := newTestHealthManager(config)

	hm.RecordFailure("https://a.example")
	assert.True(t, hm.IsHealthy("https://a.example"))

	hm.RecordFailure("https://a.example")
	assert.False(t, hm.IsHealthy("https://a.example"))
}

func TestHealthManagerBackoffCapsAtMax(t *testing.T) {
	config := HealthConfig{FailureThreshold: 1, BackoffDuration: time.Hour, MaxBackoffDuration: 2 * time.Second}
	hm := newTestHealthManager(config)

	for i := 0; i < 5; i++ {
		hm.RecordFailure("https://a.example")
	}

	hm.mu.RLock()
	health := hm.healthMap["https://a.example"]
	hm.mu.RUnlock()
	require.NotNil(t, health)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), health.NextRetryTime, time.Second)
}

func TestHealthManagerRecordSuccessClosesCircuit(t *testing.T) {
	config := HealthConfig{FailureThreshold: 1, BackoffDuration: time.Hour, MaxBackoffDuration: time.Hour}
	hm := newTestHealthManager(config)

	hm.RecordFailure("https://a.example")
	require.False(t, hm.IsHealthy("https://a.example"))

	hm.RecordSuccess("https://a.example")
	assert.True(t, hm.IsHealthy("https://a.example"))
}

func TestHealthManagerSelectHealthyEndpointSkipsOpenCircuits(t *testing.T) {
	config := HealthConfig{FailureThreshold: 1, BackoffDuration: time.Hour, MaxBackoffDuration: time.Hour}
	hm := newTestHealthManager(config)
	endpoints := []string{"https://a.example", "https://b.example"}
	hm.RecordFailure("https://a.example")

	index := 0
	selected := hm.SelectHealthyEndpoint(endpoints, &index)
	assert.Equal(t, "https://b.example", selected)
}

func TestHealthManagerCalculateSuccessRate(t *testing.T) {
	config := HealthConfig{FailureThreshold: 5, BackoffDuration: time.Hour, MaxBackoffDuration: time.Hour}
	hm := newTestHealthManager(config)

	assert.Equal(t, 1.0, hm.CalculateSuccessRate("https://fresh.example"))

	hm.RecordSuccess("https://a.example")
	hm.RecordSuccess("https://a.example")
	hm.RecordFailure("https://a.example")
	assert.InDelta(t, 2.0/3.0, hm.CalculateSuccessRate("https://a.example"), 0.001)
}

func TestHealthManagerReorderBySuccessPrefersHealthyAndHigherRate(t *testing.T) {
	config := HealthConfig{FailureThreshold: 1, BackoffDuration: time.Hour, MaxBackoffDuration: time.Hour}
	hm := newTestHealthManager(config)
	endpoints := []string{"https://bad.example", "https://good.example"}
	hm.RecordFailure("https://bad.example")
	hm.RecordSuccess("https://good.example")

	changed := hm.ReorderBySuccess(endpoints)
	assert.True(t, changed)
	assert.Equal(t, "https://good.example", endpoints[0])
}

func TestHealthManagerReorderBySuccessNoopUntilIntervalElapses(t *testing.T) {
	config := HealthConfig{FailureThreshold: 1, BackoffDuration: time.Hour, MaxBackoffDuration: time.Hour}
	hm := newTestHealthManager(config)
	endpoints := []string{"https://a.example", "https://b.example"}
	hm.RecordSuccess("https://a.example")
	hm.RecordSuccess("https://b.example")

	hm.ReorderBySuccess(endpoints)
	assert.False(t, hm.ReorderBySuccess(endpoints))
}

func TestHealthManagerSelectHealthyEndpointFallsBackWhenAllUnhealthy(t *testing.T) {
	config := HealthConfig{FailureThreshold: 1, BackoffDuration: time.Hour, MaxBackoffDuration: time.Hour}
	hm := newTestHealthManager(config)
	endpoints := []string{"https://a.example", "https://b.example"}
	hm.RecordFailure("https://a.example")
	hm.RecordFailure("https://b.example")

	index := 0
	selected := hm.SelectHealthyEndpoint(endpoints, &index)
	assert.Contains(t, endpoints, selected)
}
