// Package requestctx propagates a per-request identifier through
// context.Context so every log line and error body can be correlated back
// to one incoming HTTP call.
package requestctx

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// New generates a fresh request ID.
func New() string {
	return uuid.New().String()
}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID reads the request ID from ctx, or "unknown" if none was set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}
