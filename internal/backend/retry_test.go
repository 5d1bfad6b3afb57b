package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
)

type statusError struct {
	code int
}

func (e statusError) Error() string   { return "status error" }
func (e statusError) StatusCode() int { return e.code }

type scriptedClient struct {
	calls   int
	results []error
}

func (s *scriptedClient) Complete(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (Message, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		return Message{Role: "assistant", Content: "ok"}, nil
	}
	if err := s.results[idx]; err != nil {
		return Message{}, err
	}
	return Message{Role: "assistant", Content: "ok"}, nil
}

func (s *scriptedClient) Stream(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (<-chan Event, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.results) && s.results[idx] != nil {
		return nil, s.results[idx]
	}
	ch := make(chan Event, 1)
	ch <- Event{Kind: EventFinish, Reason: "stop"}
	close(ch)
	return ch, nil
}

func TestRetryingClientSucceedsAfterTransientFailures(t *testing.T) {
	inner := &scriptedClient{results: []error{statusError{code: 503}, nil}}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	client := NewRetryingClient(inner, policy, nil)

	msg, err := client.Complete(context.Background(), nil, nil, Params{})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingClientDoesNotRetryFatalErrors(t *testing.T) {
	inner := &scriptedClient{results: []error{statusError{code: 401}}}
	client := NewRetryingClient(inner, DefaultRetryPolicy(), nil)

	_, err := client.Complete(context.Background(), nil, nil, Params{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingClientExhaustsAttemptsAndWrapsTransient(t *testing.T) {
	inner := &scriptedClient{results: []error{statusError{code: 500}, statusError{code: 500}, statusError{code: 500}}}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	client := NewRetryingClient(inner, policy, nil)

	_, err := client.Complete(context.Background(), nil, nil, Params{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gatewayerrors.ErrBackendTransient))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingClientWaitsForRateLimiter(t *testing.T) {
	inner := &scriptedClient{}
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := NewRetryingClient(inner, DefaultRetryPolicy(), limiter)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, nil, nil, Params{})
	require.NoError(t, err)

	_, err = client.Complete(ctx, nil, nil, Params{})
	require.Error(t, err)
}

func TestRetryingClientStreamRetriesWholeCallOnFailure(t *testing.T) {
	inner := &scriptedClient{results: []error{statusError{code: 503}, nil}}
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	client := NewRetryingClient(inner, policy, nil)

	events, err := client.Stream(context.Background(), nil, nil, Params{})
	require.NoError(t, err)
	var last Event
	for e := range events {
		last = e
	}
	assert.Equal(t, EventFinish, last.Kind)
	assert.Equal(t, 2, inner.calls)
}

func TestIsRetryableDefaultsTrueWithoutStatusCode(t *testing.T) {
	assert.True(t, isRetryable(errors.New("connection reset")))
}

func TestIsRetryableChecksStatusCode(t *testing.T) {
	assert.True(t, isRetryable(statusError{code: 429}))
	assert.True(t, isRetryable(statusError{code: 500}))
	assert.False(t, isRetryable(statusError{code: 400}))
}
