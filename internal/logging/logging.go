// Package logging provides request-scoped structured logging over a logrus
// JSON backend. Call sites chain WithComponent/WithField the same way the
// component/category labels flow through every log line for observability
// ingestion.
package logging

import (
	"context"

	"github.com/imranq2/language-model-gateway/internal/requestctx"
)

// Component labels used consistently across packages.
const (
	ComponentConfigStore    = "config_store"
	ComponentToolRegistry   = "tool_registry"
	ComponentBackend        = "backend"
	ComponentAgent          = "agent"
	ComponentBlobStore      = "blob_store"
	ComponentCompletion     = "completion"
	ComponentProxyProvider  = "proxy_provider"
	ComponentOpenAIAdapter  = "openai_adapter"
)

// Category labels classify what kind of event a log line represents.
const (
	CategoryRequest        = "request"
	CategoryHealth         = "health"
	CategoryError          = "error"
	CategoryStream         = "stream"
	CategoryRefill         = "refill"
	CategoryToolInvocation = "tool_invocation"
)

// Logger is the interface call sites use. Implementations must be safe for
// concurrent use.
type Logger interface {
	Debug(message string, fields map[string]interface{})
	Info(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	WithComponent(component string) Logger
	WithCategory(category string) Logger
	WithField(key string, value interface{}) Logger
	WithModel(model string) Logger
	WithContext(ctx context.Context) Logger
}

// contextLogger wraps a Backend with request-scoped component/category and
// is what New returns.
type contextLogger struct {
	ctx       context.Context
	backend   Backend
	component string
	category  string
	extra     map[string]interface{}
}

// Backend is the structured sink a contextLogger writes to. The logrus-
// backed ObservabilityLogger is the production implementation; tests may
// substitute a recording fake.
type Backend interface {
	Log(level, component, category, requestID, message string, fields map[string]interface{})
}

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"
)

// New builds a Logger bound to ctx and backed by backend.
func New(ctx context.Context, backend Backend) Logger {
	return &contextLogger{ctx: ctx, backend: backend}
}

func (l *contextLogger) WithComponent(component string) Logger {
	return &contextLogger{ctx: l.ctx, backend: l.backend, component: component, category: l.category, extra: l.extra}
}

func (l *contextLogger) WithCategory(category string) Logger {
	return &contextLogger{ctx: l.ctx, backend: l.backend, component: l.component, category: category, extra: l.extra}
}

// WithField returns a Logger that merges key/value into the fields of every
// subsequent log call, in addition to whatever fields that call passes.
func (l *contextLogger) WithField(key string, value interface{}) Logger {
	merged := make(map[string]interface{}, len(l.extra)+1)
	for k, v := range l.extra {
		merged[k] = v
	}
	merged[key] = value
	return &contextLogger{ctx: l.ctx, backend: l.backend, component: l.component, category: l.category, extra: merged}
}

// WithModel is WithField("model", model) sugar for the common case of
// tagging every log line in a model-bound call path.
func (l *contextLogger) WithModel(model string) Logger {
	return l.WithField("model", model)
}

// WithContext rebinds the request-ID source to ctx. Call sites that build a
// per-request context (requestctx.WithRequestID) must chain this before
// logging, since a Logger's ctx is otherwise fixed at New.
func (l *contextLogger) WithContext(ctx context.Context) Logger {
	return &contextLogger{ctx: ctx, backend: l.backend, component: l.component, category: l.category, extra: l.extra}
}

func (l *contextLogger) log(level, message string, fields map[string]interface{}) {
	if l.backend == nil {
		return
	}
	merged := fields
	if len(l.extra) > 0 {
		merged = make(map[string]interface{}, len(l.extra)+len(fields))
		for k, v := range l.extra {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
	}
	l.backend.Log(level, l.component, l.category, requestctx.RequestID(l.ctx), message, merged)
}

func (l *contextLogger) Debug(message string, fields map[string]interface{}) { l.log(levelDebug, message, fields) }
func (l *contextLogger) Info(message string, fields map[string]interface{})  { l.log(levelInfo, message, fields) }
func (l *contextLogger) Warn(message string, fields map[string]interface{})  { l.log(levelWarn, message, fields) }
func (l *contextLogger) Error(message string, fields map[string]interface{}) { l.log(levelError, message, fields) }
