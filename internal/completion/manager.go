// Package completion implements the end-to-end chat-completion control flow:
// config lookup, help-command interception, system-prompt injection, and
// provider dispatch, per spec.md 4.G. Grounded on the teacher's
// HandleAnthropicRequest control flow (proxy/handler.go: read config → map
// model → transform → route → respond) and directly on the original
// chat_completion_manager.py's help-command interception and
// add_system_messages logic.
package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/imranq2/language-model-gateway/internal/configstore"
	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/openaiapi"
)

// Provider is one backend dispatch target: the pass-through proxy (type=
// openai) or the agent runtime (type=langchain). Both are invoked with the
// same (config, headers, request) signature (spec.md 4.G step 6).
type Provider interface {
	Complete(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error)
	Stream(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (<-chan openaiapi.ChatCompletionChunk, error)
}

// ModelNotFoundError is a body-level error per spec.md 4.G step 2 — OpenAI
// clients parse response bodies for errors, so this is never surfaced as a
// non-200 HTTP status.
type ModelNotFoundError struct {
	Model string
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("Model %s not found in the config", e.Model)
}

// UnsupportedTypeError reports a model definition whose type isn't bound to
// a known provider. Unlike ModelNotFoundError, the HTTP layer returns it as
// a structured 5xx error.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("model type %q not supported", e.Type)
}

// Manager is the single entry point HTTP handlers call for chat completion.
type Manager struct {
	Store          *configstore.Store
	OpenAIProvider Provider
	AgentProvider  Provider
	Logger         logging.Logger
	NewID          func() string
	Now            func() int64
}

func New(store *configstore.Store, openaiProvider, agentProvider Provider, logger logging.Logger, newID func() string, now func() int64) *Manager {
	return &Manager{Store: store, OpenAIProvider: openaiProvider, AgentProvider: agentProvider, Logger: logger, NewID: newID, Now: now}
}

// resolve implements spec.md 4.G steps 1-2: read the snapshot, then locate
// the model definition by case-insensitive name.
func (m *Manager) resolve(ctx context.Context, model string) (configstore.ModelDefinition, error) {
	snapshot := m.Store.Get(ctx)
	def, ok := snapshot.Find(model)
	if !ok {
		return configstore.ModelDefinition{}, &ModelNotFoundError{Model: model}
	}
	return def, nil
}

func (m *Manager) providerFor(def configstore.ModelDefinition) (Provider, error) {
	switch def.Type {
	case "openai":
		return m.OpenAIProvider, nil
	case "langchain":
		return m.AgentProvider, nil
	default:
		return nil, &UnsupportedTypeError{Type: def.Type}
	}
}

// helpResponse is non-nil only when the last user message, trimmed and
// lowered, is literally "help" (spec.md 4.G step 3).
func (m *Manager) helpResponse(req openaiapi.ChatCompletionRequest, def configstore.ModelDefinition) (openaiapi.ChatCompletionResponse, bool) {
	last := strings.ToLower(strings.TrimSpace(openaiapi.LastUserMessageText(req)))
	if last != "help" {
		return openaiapi.ChatCompletionResponse{}, false
	}
	examples := make([]string, 0, len(def.ExamplePrompts))
	for _, p := range def.ExamplePrompts {
		examples = append(examples, p.Content)
	}
	return openaiapi.HelpResponse(m.NewID(), m.Now(), def.Name, def.Description, examples), true
}

// Complete runs the non-streaming control flow end to end.
func (m *Manager) Complete(ctx context.Context, headers map[string]string, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
	def, err := m.resolve(ctx, req.Model)
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, err
	}
	if resp, ok := m.helpResponse(req, def); ok {
		return resp, nil
	}
	provider, err := m.providerFor(def)
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, err
	}
	return provider.Complete(ctx, def, headers, req)
}

// Stream runs the streaming control flow, synthesizing a single
// help-command chunk sequence when applicable.
func (m *Manager) Stream(ctx context.Context, headers map[string]string, req openaiapi.ChatCompletionRequest) (<-chan openaiapi.ChatCompletionChunk, error) {
	def, err := m.resolve(ctx, req.Model)
	if err != nil {
		return nil, err
	}
	if resp, ok := m.helpResponse(req, def); ok {
		return singleChunkStream(resp), nil
	}
	provider, err := m.providerFor(def)
	if err != nil {
		return nil, err
	}
	return provider.Stream(ctx, def, headers, req)
}

// System-prompt injection (spec.md 4.G step 4) is done by each Provider:
// AgentProvider through openaiapi.ToInternalMessages (4.F inbound
// translation), the proxy provider in its applyDefinition step. Both
// prepend the definition's system prompts only when the client sent no
// system message.

func singleChunkStream(resp openaiapi.ChatCompletionResponse) <-chan openaiapi.ChatCompletionChunk {
	out := make(chan openaiapi.ChatCompletionChunk, 2)
	reason := resp.Choices[0].FinishReason
	out <- openaiapi.ChatCompletionChunk{
		ID: resp.ID, Object: "chat.completion.chunk", Created: resp.Created, Model: resp.Model,
		SystemFingerprint: resp.SystemFingerprint,
		Choices:           []openaiapi.StreamChoice{{Index: 0, Delta: openaiapi.StreamDelta{Content: resp.Choices[0].Message.Content}}},
	}
	out <- openaiapi.ChatCompletionChunk{
		ID: resp.ID, Object: "chat.completion.chunk", Created: resp.Created, Model: resp.Model,
		SystemFingerprint: resp.SystemFingerprint,
		Choices:           []openaiapi.StreamChoice{{Index: 0, FinishReason: &reason}},
	}
	close(out)
	return out
}
