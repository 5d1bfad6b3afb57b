// Package metrics exposes the Prometheus counters and histograms the
// gateway's /metrics endpoint serves, covering the suspension points spec.md
// 5 names as worth observing: backend calls, tool invocations, config
// refills, and active streams.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BackendRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "gateway_backend_request_duration_seconds",
		Help: "Latency of backend client calls (complete and stream) by provider and outcome.",
	}, []string{"provider", "outcome"})

	BackendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_backend_requests_total",
		Help: "Count of backend client calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	ToolInvocationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_tool_invocations_total",
		Help: "Count of tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})

	ConfigRefillsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_config_refills_total",
		Help: "Count of configuration store refill attempts by source and outcome.",
	}, []string{"source", "outcome"})

	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_active_streams",
		Help: "Number of chat-completion SSE streams currently open.",
	})
)

// Registry bundles every collector for a single registration call at
// process start.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(BackendRequestDuration, BackendRequestsTotal, ToolInvocationsTotal, ConfigRefillsTotal, ActiveStreams)
	return reg
}
