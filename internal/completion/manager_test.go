package completion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imranq2/language-model-gateway/internal/configstore"
	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/openaiapi"
)

type nopBackend struct{}

func (nopBackend) Log(level, component, category, requestID, message string, fields map[string]interface{}) {
}

type recordingProvider struct {
	lastReq openaiapi.ChatCompletionRequest
	resp    openaiapi.ChatCompletionResponse
}

func (p *recordingProvider) Complete(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (openaiapi.ChatCompletionResponse, error) {
	p.lastReq = req
	return p.resp, nil
}

func (p *recordingProvider) Stream(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (<-chan openaiapi.ChatCompletionChunk, error) {
	p.lastReq = req
	ch := make(chan openaiapi.ChatCompletionChunk)
	close(ch)
	return ch, nil
}

func newManagerWithDefinitions(defs []configstore.ModelDefinition, openaiProvider, agentProvider Provider) *Manager {
	source := staticSource{defs: defs}
	store := configstore.New(source, 0, logging.New(context.Background(), nopBackend{}))
	return New(store, openaiProvider, agentProvider, logging.New(context.Background(), nopBackend{}), func() string { return "id1" }, func() int64 { return 1000 })
}

type staticSource struct{ defs []configstore.ModelDefinition }

func (s staticSource) Load(ctx context.Context) ([]configstore.ModelDefinition, error) {
	return s.defs, nil
}

func TestCompleteReturnsModelNotFoundError(t *testing.T) {
	m := newManagerWithDefinitions(nil, &recordingProvider{}, &recordingProvider{})
	_, err := m.Complete(context.Background(), nil, openaiapi.ChatCompletionRequest{Model: "Unknown"})
	require.Error(t, err)
	var notFound *ModelNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Model Unknown not found in the config", err.Error())
}

// TestCompleteInterceptsHelpCommand is scenario S1.
func TestCompleteInterceptsHelpCommand(t *testing.T) {
	def := configstore.ModelDefinition{Name: "General Purpose", Type: "openai", Description: "General chat", ExamplePrompts: []configstore.PromptMessage{{Content: "Summarize this."}}}
	m := newManagerWithDefinitions([]configstore.ModelDefinition{def}, &recordingProvider{}, &recordingProvider{})

	resp, err := m.Complete(context.Background(), nil, openaiapi.ChatCompletionRequest{Model: "General Purpose", Messages: []openaiapi.Message{{Role: "user", Content: "  Help  "}}})

	require.NoError(t, err)
	assert.Equal(t, "General chat\n\nExample prompts:\nSummarize this.", resp.Choices[0].Message.Content)
}

func TestCompleteRoutesByType(t *testing.T) {
	openaiProvider := &recordingProvider{resp: openaiapi.ChatCompletionResponse{ID: "from-openai"}}
	agentProvider := &recordingProvider{resp: openaiapi.ChatCompletionResponse{ID: "from-agent"}}
	defs := []configstore.ModelDefinition{
		{Name: "oa", Type: "openai"},
		{Name: "lc", Type: "langchain"},
	}
	m := newManagerWithDefinitions(defs, openaiProvider, agentProvider)

	resp, err := m.Complete(context.Background(), nil, openaiapi.ChatCompletionRequest{Model: "oa", Messages: []openaiapi.Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "from-openai", resp.ID)

	resp, err = m.Complete(context.Background(), nil, openaiapi.ChatCompletionRequest{Model: "LC", Messages: []openaiapi.Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "from-agent", resp.ID)
}

func TestCompleteReturnsUnsupportedTypeError(t *testing.T) {
	defs := []configstore.ModelDefinition{{Name: "weird", Type: "unknown"}}
	m := newManagerWithDefinitions(defs, &recordingProvider{}, &recordingProvider{})

	_, err := m.Complete(context.Background(), nil, openaiapi.ChatCompletionRequest{Model: "weird", Messages: []openaiapi.Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	var unsupported *UnsupportedTypeError
	assert.ErrorAs(t, err, &unsupported)
}

func TestStreamInterceptsHelpCommandAsTwoChunks(t *testing.T) {
	def := configstore.ModelDefinition{Name: "gpt-x", Type: "openai", Description: "does things"}
	m := newManagerWithDefinitions([]configstore.ModelDefinition{def}, &recordingProvider{}, &recordingProvider{})

	chunks, err := m.Stream(context.Background(), nil, openaiapi.ChatCompletionRequest{Model: "gpt-x", Messages: []openaiapi.Message{{Role: "user", Content: "help"}}})
	require.NoError(t, err)

	var collected []openaiapi.ChatCompletionChunk
	for c := range chunks {
		collected = append(collected, c)
	}
	require.Len(t, collected, 2)
	assert.Contains(t, collected[0].Choices[0].Delta.Content, "does things")
	require.NotNil(t, collected[1].Choices[0].FinishReason)
}
