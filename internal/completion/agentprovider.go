package completion

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/imranq2/language-model-gateway/internal/agent"
	"github.com/imranq2/language-model-gateway/internal/backend"
	"github.com/imranq2/language-model-gateway/internal/configstore"
	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/openaiapi"
	"github.com/imranq2/language-model-gateway/internal/toolregistry"
)

// AgentProvider implements Provider for type=langchain model definitions: it
// runs the agent think/act/finish loop (internal/agent) instead of passing
// the request straight through to an upstream chat endpoint. Grounded on the
// original chat_completion_manager.py's langchain dispatch branch, which
// built a LangChain agent executor per request the same way this builds an
// agent.Runtime per request.
type AgentProvider struct {
	Tools       *toolregistry.Registry
	Logger      logging.Logger
	NewID       func() string
	Now         func() int64
	RetryPolicy backend.RetryPolicy
	RateLimiter *rate.Limiter
}

func NewAgentProvider(tools *toolregistry.Registry, logger logging.Logger, newID func() string, now func() int64) *AgentProvider {
	return &AgentProvider{Tools: tools, Logger: logger, NewID: newID, Now: now, RetryPolicy: backend.DefaultRetryPolicy()}
}

// bearerToken extracts the credential a client supplied, passed through
// unmodified to the bound backend per the credential-passthrough non-goal —
// no gateway-side API key storage.
func bearerToken(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			return strings.TrimPrefix(v, "Bearer ")
		}
	}
	return ""
}

func (p *AgentProvider) buildClient(def configstore.ModelDefinition, headers map[string]string) (backend.Client, error) {
	if def.Backend == nil {
		return nil, fmt.Errorf("completion: model %q has no backend binding", def.Name)
	}
	apiKey := bearerToken(headers)

	var inner backend.Client
	switch def.Backend.Provider {
	case "openai":
		inner = backend.NewOpenAIBackend(apiKey, def.URL, def.Backend.ModelID)
	case "anthropic":
		inner = backend.NewAnthropicBackend(apiKey, def.Backend.ModelID, 4096)
	default:
		return nil, &UnsupportedTypeError{Type: def.Backend.Provider}
	}
	instrumented := backend.NewInstrumentedClient(inner, def.Backend.Provider)
	return backend.NewRetryingClient(instrumented, p.RetryPolicy, p.RateLimiter), nil
}

func (p *AgentProvider) runtime(def configstore.ModelDefinition, headers map[string]string) (*agent.Runtime, error) {
	client, err := p.buildClient(def, headers)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(def.EffectiveAgents()))
	for _, ref := range def.EffectiveAgents() {
		names = append(names, ref.Name)
	}
	var scoped *toolregistry.Registry
	if p.Tools != nil {
		scoped = p.Tools.Subset(names)
	}
	logger := p.Logger
	if logger != nil {
		logger = logger.WithModel(def.Name)
	}
	return agent.New(client, scoped, logger), nil
}

func (p *AgentProvider) Complete(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
	rt, err := p.runtime(def, headers)
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, err
	}
	state := &agent.State{Messages: openaiapi.ToInternalMessages(req, def)}
	result, err := rt.Run(ctx, state, openaiapi.EffectiveParams(def))
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, fmt.Errorf("completion: agent run: %w", err)
	}
	return openaiapi.UnaryResponse(p.NewID(), p.Now(), def.Name, result.Message, result.Reason), nil
}

func (p *AgentProvider) Stream(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (<-chan openaiapi.ChatCompletionChunk, error) {
	rt, err := p.runtime(def, headers)
	if err != nil {
		return nil, err
	}
	state := &agent.State{Messages: openaiapi.ToInternalMessages(req, def)}
	events, err := rt.Stream(ctx, state, openaiapi.EffectiveParams(def))
	if err != nil {
		return nil, fmt.Errorf("completion: agent stream: %w", err)
	}
	return openaiapi.ChunksFromEvents(events, p.NewID(), p.Now(), def.Name), nil
}
