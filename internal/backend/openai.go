package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIBackend wraps github.com/openai/openai-go for type=openai pass-
// through and as a langchain-agent binding target, grounded on
// taipm-go-deep-agent's openai.NewClient(option.WithAPIKey(...)) idiom.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(apiKey, baseURL, model string) *OpenAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIBackend{client: &client, model: model}
}

func (b *OpenAIBackend) buildParams(messages []Message, tools []ToolDecl, params Params) openai.ChatCompletionNewParams {
	req := openai.ChatCompletionNewParams{
		Model:    b.model,
		Messages: encodeOpenAIMessages(messages),
	}
	if len(tools) > 0 {
		req.Tools = encodeOpenAITools(tools)
	}
	if params.Temperature != nil {
		req.Temperature = openai.Float(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = openai.Float(*params.TopP)
	}
	if params.MaxTokens != nil {
		req.MaxTokens = openai.Int(int64(*params.MaxTokens))
	}
	return req
}

func (b *OpenAIBackend) Complete(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (Message, error) {
	req := b.buildParams(messages, tools, params)
	resp, err := b.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return Message{}, fmt.Errorf("backend: openai complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, fmt.Errorf("backend: openai complete: no choices returned")
	}
	return decodeOpenAIChoice(resp.Choices[0]), nil
}

func (b *OpenAIBackend) Stream(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (<-chan Event, error) {
	req := b.buildParams(messages, tools, params)
	stream := b.client.Chat.Completions.NewStreaming(ctx, req)

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		toolCallsByIndex := map[int64]*ToolCall{}
		var order []int64
		finishReason := "stop"

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				events <- Event{Kind: EventTextDelta, Text: choice.Delta.Content}
			}
			for _, tc := range choice.Delta.ToolCalls {
				existing, ok := toolCallsByIndex[tc.Index]
				if !ok {
					existing = &ToolCall{ID: tc.ID, Name: tc.Function.Name}
					toolCallsByIndex[tc.Index] = existing
					order = append(order, tc.Index)
				}
				if tc.Function.Name != "" {
					existing.Name = tc.Function.Name
				}
				if tc.ID != "" {
					existing.ID = tc.ID
				}
				accumulateArgs(existing, tc.Function.Arguments)
			}
			if choice.FinishReason != "" {
				finishReason = string(choice.FinishReason)
			}
		}
		if err := stream.Err(); err != nil {
			events <- Event{Kind: EventFinish, Reason: "error"}
			return
		}
		for _, idx := range order {
			tc := toolCallsByIndex[idx]
			events <- Event{Kind: EventToolCall, ToolCallID: tc.ID, ToolName: tc.Name, ToolArgs: tc.Args}
		}
		events <- Event{Kind: EventFinish, Reason: finishReason}
	}()
	return events, nil
}

// accumulateArgs stores raw streamed JSON argument fragments; full decode
// happens once the tool-call-intent event is assembled at act time.
func accumulateArgs(tc *ToolCall, fragment string) {
	if fragment == "" {
		return
	}
	if tc.Args == nil {
		tc.Args = map[string]interface{}{"__raw": ""}
	}
	raw, _ := tc.Args["__raw"].(string)
	tc.Args["__raw"] = raw + fragment
}

func encodeOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func encodeOpenAITools(tools []ToolDecl) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Schema),
			},
		})
	}
	return out
}

func decodeOpenAIChoice(choice openai.ChatCompletionChoice) Message {
	msg := Message{Role: "assistant", Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return msg
}
