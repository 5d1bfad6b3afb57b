package logging

import (
	"context"
	"testing"

	"github.com/imranq2/language-model-gateway/internal/requestctx"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	level, component, category, requestID, message string
	fields                                          map[string]interface{}
}

func (r *recordingBackend) Log(level, component, category, requestID, message string, fields map[string]interface{}) {
	r.level, r.component, r.category, r.requestID, r.message, r.fields = level, component, category, requestID, message, fields
}

func TestContextLoggerCarriesComponentCategoryAndRequestID(t *testing.T) {
	backend := &recordingBackend{}
	ctx := requestctx.WithRequestID(context.Background(), "req-123")
	logger := New(ctx, backend).WithComponent(ComponentBackend).WithCategory(CategoryRefill)

	logger.Info("refilled snapshot", map[string]interface{}{"count": 3})

	require.Equal(t, levelInfo, backend.level)
	require.Equal(t, ComponentBackend, backend.component)
	require.Equal(t, CategoryRefill, backend.category)
	require.Equal(t, "req-123", backend.requestID)
	require.Equal(t, "refilled snapshot", backend.message)
	require.Equal(t, 3, backend.fields["count"])
}

func TestContextLoggerDefaultsRequestIDWhenUnset(t *testing.T) {
	backend := &recordingBackend{}
	logger := New(context.Background(), backend)

	logger.Error("boom", nil)

	require.Equal(t, "unknown", backend.requestID)
	require.Equal(t, levelError, backend.level)
}

func TestWithFieldAndWithModelMergeIntoEveryLogCall(t *testing.T) {
	backend := &recordingBackend{}
	logger := New(context.Background(), backend).WithField("attempt", 2).WithModel("gpt-4o")

	logger.Info("dispatching", map[string]interface{}{"tool": "calculator"})

	require.Equal(t, 2, backend.fields["attempt"])
	require.Equal(t, "gpt-4o", backend.fields["model"])
	require.Equal(t, "calculator", backend.fields["tool"])
}

func TestWithContextRebindsRequestID(t *testing.T) {
	backend := &recordingBackend{}
	logger := New(context.Background(), backend)

	ctx := requestctx.WithRequestID(context.Background(), "req-456")
	logger.WithContext(ctx).Info("rebound", nil)

	require.Equal(t, "req-456", backend.requestID)
}
