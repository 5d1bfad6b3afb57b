package backend

import (
	"context"
	"time"

	"github.com/imranq2/language-model-gateway/internal/metrics"
)

// InstrumentedClient decorates a Client with the backend latency/count
// metrics the gateway's /metrics endpoint serves, one per upstream call
// attempt (including each retry) rather than once per logical request.
type InstrumentedClient struct {
	inner    Client
	provider string
}

// NewInstrumentedClient wraps inner, labeling every observation with
// provider (the model definition's backend type, e.g. "openai", "anthropic").
func NewInstrumentedClient(inner Client, provider string) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, provider: provider}
}

func (c *InstrumentedClient) Complete(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (Message, error) {
	start := time.Now()
	msg, err := c.inner.Complete(ctx, messages, tools, params)
	c.observe(start, err)
	return msg, err
}

func (c *InstrumentedClient) Stream(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (<-chan Event, error) {
	start := time.Now()
	events, err := c.inner.Stream(ctx, messages, tools, params)
	c.observe(start, err)
	return events, err
}

func (c *InstrumentedClient) observe(start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.BackendRequestDuration.WithLabelValues(c.provider, outcome).Observe(time.Since(start).Seconds())
	metrics.BackendRequestsTotal.WithLabelValues(c.provider, outcome).Inc()
}
