package backend

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
)

// RetryPolicy controls RetryingClient's backoff arithmetic.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// RetryingClient decorates a Client with spec.md 4.D's failure semantics:
// transient upstream errors are retried with exponential backoff plus
// jitter up to a fixed cap; 4xx authentication failures are never retried.
// The backoff arithmetic is adapted from the teacher's circuitbreaker
// package (breaker.go RecordFailure): exponential growth capped at a
// maximum, generalized from per-endpoint circuit state to per-call retry
// state.
type RetryingClient struct {
	inner   Client
	policy  RetryPolicy
	limiter *rate.Limiter
}

// NewRetryingClient wraps inner with retry/backoff. limiter may be nil to
// disable rate limiting; when set, every call (including retries) waits for
// a token first — grounded on goadesign-goa-ai's rate-limiting model.Client
// middleware, simplified from its adaptive AIMD variant to a fixed
// requests-per-second cap since the gateway has no provider backoff-signal
// feedback channel to adapt from.
func NewRetryingClient(inner Client, policy RetryPolicy, limiter *rate.Limiter) *RetryingClient {
	return &RetryingClient{inner: inner, policy: policy, limiter: limiter}
}

func (r *RetryingClient) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

func (r *RetryingClient) backoff(attempt int) time.Duration {
	delay := r.policy.BaseDelay * time.Duration(int64(1)<<uint(attempt))
	if delay > r.policy.MaxDelay {
		delay = r.policy.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) / 2))
	return delay + jitter
}

func (r *RetryingClient) Complete(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (Message, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if err := r.wait(ctx); err != nil {
			return Message{}, err
		}
		msg, err := r.inner.Complete(ctx, messages, tools, params)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return Message{}, err
		}
		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}
	return Message{}, errors.Join(gatewayerrors.ErrBackendTransient, lastErr)
}

// Stream is not retried mid-stream — "stream resumes only from the start of
// a call, not mid-stream" (spec.md 4.D) — so a failed stream attempt is
// simply retried as a whole new call.
func (r *RetryingClient) Stream(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (<-chan Event, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}
		events, err := r.inner.Stream(ctx, messages, tools, params)
		if err == nil {
			return events, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff(attempt)):
		}
	}
	return nil, errors.Join(gatewayerrors.ErrBackendTransient, lastErr)
}

// isRetryable distinguishes transient upstream failures from 4xx
// authentication failures, which must surface as a fatal error (spec.md 4.D).
func isRetryable(err error) bool {
	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode()
		return code >= 500 || code == 429
	}
	// Connection resets/timeouts without a status code are treated as
	// transient by default.
	return true
}
