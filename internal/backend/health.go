package backend

import (
	"sync"
	"time"

	"github.com/imranq2/language-model-gateway/internal/logging"
)

// EndpointHealth tracks one backend endpoint's failure/success history,
// adapted from the teacher's circuitbreaker.EndpointHealth.
type EndpointHealth struct {
	URL              string
	FailureCount     int
	SuccessCount     int
	TotalRequests    int
	LastFailureTime  time.Time
	LastSuccessTime  time.Time
	CircuitOpen      bool
	NextRetryTime    time.Time
	LastReorderCheck time.Time
}

// HealthConfig controls the open/close backoff state machine.
type HealthConfig struct {
	FailureThreshold   int
	BackoffDuration    time.Duration
	MaxBackoffDuration time.Duration
}

func DefaultHealthConfig() HealthConfig {
	return HealthConfig{FailureThreshold: 2, BackoffDuration: 30 * time.Second, MaxBackoffDuration: 5 * time.Minute}
}

// HealthManager tracks health per endpoint URL across the calls reported to
// it — adapted verbatim in spirit from the teacher's circuitbreaker package,
// renamed to the gateway's backend-endpoint domain. A model definition
// carries a single upstream URL, and no request path constructs one.
type HealthManager struct {
	config    HealthConfig
	healthMap map[string]*EndpointHealth
	mu        sync.RWMutex
	logger    logging.Logger
}

func NewHealthManager(config HealthConfig, logger logging.Logger) *HealthManager {
	return &HealthManager{config: config, healthMap: make(map[string]*EndpointHealth), logger: logger}
}

func (hm *HealthManager) lookup(endpoint string) *EndpointHealth {
	health, exists := hm.healthMap[endpoint]
	if !exists {
		health = &EndpointHealth{URL: endpoint}
		hm.healthMap[endpoint] = health
	}
	return health
}

// RecordFailure marks an endpoint as failed and potentially opens its circuit.
func (hm *HealthManager) RecordFailure(endpoint string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	health := hm.lookup(endpoint)
	health.FailureCount++
	health.TotalRequests++
	health.LastFailureTime = time.Now()

	if health.FailureCount >= hm.config.FailureThreshold {
		health.CircuitOpen = true
		failuresOverThreshold := health.FailureCount - hm.config.FailureThreshold + 1
		if failuresOverThreshold < 1 {
			failuresOverThreshold = 1
		}
		backoff := hm.config.BackoffDuration * time.Duration(failuresOverThreshold)
		if backoff > hm.config.MaxBackoffDuration {
			backoff = hm.config.MaxBackoffDuration
		}
		health.NextRetryTime = time.Now().Add(backoff)
		hm.logger.Warn("circuit opened for backend endpoint", map[string]interface{}{"endpoint": endpoint, "failures": health.FailureCount, "backoff": backoff.String()})
	}
}

// RecordSuccess marks an endpoint as successful and closes its circuit if open.
func (hm *HealthManager) RecordSuccess(endpoint string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	health := hm.lookup(endpoint)
	health.SuccessCount++
	health.TotalRequests++
	health.LastSuccessTime = time.Now()

	if health.CircuitOpen {
		health.CircuitOpen = false
		health.FailureCount = 0
		health.NextRetryTime = time.Time{}
	} else if health.FailureCount > 0 {
		health.FailureCount = 0
	}
}

// IsHealthy reports whether endpoint's circuit is closed, or open but past
// its backoff window.
func (hm *HealthManager) IsHealthy(endpoint string) bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	health, exists := hm.healthMap[endpoint]
	if !exists {
		return true
	}
	if health.CircuitOpen {
		return time.Now().After(health.NextRetryTime)
	}
	return true
}

// CalculateSuccessRate returns endpoint's success ratio over all requests
// recorded so far, or 1.0 for an endpoint with no history.
func (hm *HealthManager) CalculateSuccessRate(endpoint string) float64 {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	health, exists := hm.healthMap[endpoint]
	if !exists || health.TotalRequests == 0 {
		return 1.0
	}
	return float64(health.SuccessCount) / float64(health.TotalRequests)
}

// reorderInterval bounds how often ReorderBySuccess resorts endpoints, so a
// single bad request doesn't reshuffle a hot path on every call.
const reorderInterval = 5 * time.Minute

type endpointScore struct {
	url         string
	successRate float64
	isHealthy   bool
}

// ReorderBySuccess sorts endpoints in place, healthy endpoints first then by
// descending success rate, at most once per reorderInterval. Returns whether
// order changed.
func (hm *HealthManager) ReorderBySuccess(endpoints []string) bool {
	now := time.Now()

	hm.mu.RLock()
	shouldReorder := len(hm.healthMap) == 0
	for _, health := range hm.healthMap {
		if now.Sub(health.LastReorderCheck) > reorderInterval {
			shouldReorder = true
			break
		}
	}
	hm.mu.RUnlock()

	if !shouldReorder || len(endpoints) <= 1 {
		return false
	}

	scores := make([]endpointScore, len(endpoints))
	for i, endpoint := range endpoints {
		scores[i] = endpointScore{url: endpoint, successRate: hm.CalculateSuccessRate(endpoint), isHealthy: hm.IsHealthy(endpoint)}
	}

	for i := 0; i < len(scores); i++ {
		for j := i + 1; j < len(scores); j++ {
			if scores[i].isHealthy != scores[j].isHealthy {
				if scores[j].isHealthy && !scores[i].isHealthy {
					scores[i], scores[j] = scores[j], scores[i]
				}
				continue
			}
			if scores[j].successRate > scores[i].successRate {
				scores[i], scores[j] = scores[j], scores[i]
			}
		}
	}

	hasChanged := false
	for i, score := range scores {
		if endpoints[i] != score.url {
			hasChanged = true
		}
		endpoints[i] = score.url
	}

	hm.mu.Lock()
	for _, health := range hm.healthMap {
		health.LastReorderCheck = now
	}
	hm.mu.Unlock()

	if hasChanged {
		hm.logger.Info("reordered backend endpoints by success rate", map[string]interface{}{"endpoints": endpoints})
	}
	return hasChanged
}

// SelectHealthyEndpoint returns the next healthy endpoint, round-robin,
// advancing currentIndex. Falls back to the next endpoint regardless of
// health if none are healthy.
func (hm *HealthManager) SelectHealthyEndpoint(endpoints []string, currentIndex *int) string {
	if len(endpoints) == 0 {
		return ""
	}
	attempts := 0
	for attempts < len(endpoints) {
		endpoint := endpoints[*currentIndex]
		*currentIndex = (*currentIndex + 1) % len(endpoints)
		attempts++
		if hm.IsHealthy(endpoint) {
			return endpoint
		}
	}
	endpoint := endpoints[*currentIndex]
	*currentIndex = (*currentIndex + 1) % len(endpoints)
	return endpoint
}
