package toolregistry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
	"github.com/imranq2/language-model-gateway/internal/metrics"
)

// Invoker is the single operation a tool binding exposes. content is fed
// back into the agent loop; artifact is a user-facing trace string that may
// embed a public artifact URL. Invokers must be safe for concurrent calls.
type Invoker func(ctx context.Context, args map[string]interface{}) (content string, artifact string, err error)

// Binding is a named tool: its schema plus its invoker. Stateless across
// calls (spec.md 3's Tool binding invariant) — any external resource an
// invoker needs is owned and lifecycle-managed by the invoker itself.
type Binding struct {
	Name        string
	Description string
	Schema      ArgSchema
	Invoke      Invoker
}

// Registry is a read-only-after-startup mapping from tool name to binding
// (spec.md 5: "the tool registry is read-only after startup").
type Registry struct {
	mu        sync.RWMutex
	bindings  map[string]*Binding
	canonical map[string]string // lowercase name -> canonical name
	order     []string          // canonical names in registration order
}

func New() *Registry {
	return &Registry{bindings: map[string]*Binding{}, canonical: map[string]string{}}
}

// Register compiles the binding's schema and adds it to the registry.
// Called only during process wiring, before any request is served.
func (r *Registry) Register(b Binding) error {
	if err := b.Schema.Compile(); err != nil {
		return fmt.Errorf("toolregistry: register %q: %w", b.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bound := b
	if _, exists := r.bindings[b.Name]; !exists {
		r.order = append(r.order, b.Name)
	}
	r.bindings[b.Name] = &bound
	r.canonical[strings.ToLower(b.Name)] = b.Name
	return nil
}

// Resolve looks up a tool name case-insensitively.
func (r *Registry) Resolve(name string) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	canonical, ok := normalizeToolName(name, r.canonical)
	if !ok {
		return nil, false
	}
	return r.bindings[canonical], true
}

// Invoke normalizes args (camelCase/snake_case, unknown keys dropped),
// validates against the schema, and — only if valid — calls the invoker.
// Returns gatewayerrors.ErrToolValidationFailed with the human-readable
// reason on validation failure; that error is an observation, not a
// request-level failure (spec.md 4.B).
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs map[string]interface{}) (content, artifact string, err error) {
	binding, ok := r.Resolve(name)
	if !ok {
		return "", "", fmt.Errorf("toolregistry: unknown tool %q: %w", name, gatewayerrors.ErrNotFound)
	}
	args := normalizeArgs(rawArgs, binding.Schema)
	result := binding.Schema.Validate(args)
	if !result.Valid {
		metrics.ToolInvocationsTotal.WithLabelValues(binding.Name, "validation_failed").Inc()
		return "", "", fmt.Errorf("toolregistry: tool %q missing required fields %v: %w", name, result.MissingFields, gatewayerrors.ErrToolValidationFailed)
	}
	content, artifact, err = binding.Invoke(ctx, args)
	if err != nil {
		metrics.ToolInvocationsTotal.WithLabelValues(binding.Name, "error").Inc()
		return "", "", fmt.Errorf("toolregistry: tool %q invocation failed: %w", name, gatewayerrors.ErrToolInvocationFailed)
	}
	metrics.ToolInvocationsTotal.WithLabelValues(binding.Name, "success").Inc()
	return content, artifact, nil
}

// Subset returns a new Registry exposing only the named bindings, in the
// order names lists them, skipping names that aren't registered. Used to scope
// a model definition's agent/tool list (spec.md 3's ToolRef list) down from
// the process-wide registry to what that one model is allowed to call.
func (r *Registry) Subset(names []string) *Registry {
	sub := New()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		canonical, ok := normalizeToolName(name, r.canonical)
		if !ok {
			continue
		}
		if _, exists := sub.bindings[canonical]; exists {
			continue
		}
		bound := *r.bindings[canonical]
		sub.bindings[bound.Name] = &bound
		sub.canonical[strings.ToLower(bound.Name)] = bound.Name
		sub.order = append(sub.order, bound.Name)
	}
	return sub
}

// Declarations returns the tool set in the shape a backend client advertises
// to its upstream's tool-binding channel, in registration order so the
// advertised tool list is deterministic across requests.
func (r *Registry) Declarations() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]Declaration, 0, len(r.order))
	for _, name := range r.order {
		b := r.bindings[name]
		decls = append(decls, Declaration{Name: b.Name, Description: b.Description, Schema: b.Schema})
	}
	return decls
}

// Declaration is the tool-advertisement shape backend.Client implementations
// translate into their provider's native tool-declaration format.
type Declaration struct {
	Name        string
	Description string
	Schema      ArgSchema
}
