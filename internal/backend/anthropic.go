package backend

import (
	"context"
	"fmt"
	"regexp"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

// MessagesClient captures the subset of the Anthropic SDK used here, so
// tests can substitute a fake rather than calling the real API — the same
// seam goadesign-goa-ai's anthropic adapter exposes.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// AnthropicBackend wraps github.com/anthropics/anthropic-sdk-go, a second
// heterogeneous cloud provider bound the same way as OpenAIBackend — ground:
// goadesign-goa-ai/features/model/anthropic/client.go.
type AnthropicBackend struct {
	client    MessagesClient
	model     string
	maxTokens int64
}

func NewAnthropicBackend(apiKey, model string, maxTokens int64) *AnthropicBackend {
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicBackend{client: &client.Messages, model: model, maxTokens: maxTokens}
}

var unsafeToolNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeToolName strips characters Anthropic's tool-name grammar rejects,
// grounded on the teacher pack's sanitizeToolName/isProviderSafeToolName.
func sanitizeToolName(name string) string {
	return unsafeToolNameChars.ReplaceAllString(name, "_")
}

func (b *AnthropicBackend) prepareParams(messages []Message, tools []ToolDecl, params Params) (sdk.MessageNewParams, map[string]string) {
	sanToCanon := make(map[string]string, len(tools))
	var sdkTools []sdk.ToolUnionParam
	for _, t := range tools {
		sanitized := sanitizeToolName(t.Name)
		sanToCanon[sanitized] = t.Name
		sdkTools = append(sdkTools, sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        sanitized,
				Description: sdk.String(t.Description),
				InputSchema: sdk.ToolInputSchemaParam{ExtraFields: t.Schema},
			},
		})
	}

	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, sdk.TextBlockParam{Text: m.Content})
			continue
		}
		blocks := encodeAnthropicContent(m, sanToCanon)
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case "assistant":
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		default:
			conversation = append(conversation, sdk.NewUserMessage(blocks...))
		}
	}

	req := sdk.MessageNewParams{
		Model:     sdk.Model(b.model),
		MaxTokens: b.maxTokens,
		Messages:  conversation,
	}
	if len(system) > 0 {
		req.System = system
	}
	if len(sdkTools) > 0 {
		req.Tools = sdkTools
	}
	if params.Temperature != nil {
		req.Temperature = sdk.Float(*params.Temperature)
	}
	return req, sanToCanon
}

func encodeAnthropicContent(m Message, sanToCanon map[string]string) []sdk.ContentBlockParamUnion {
	var blocks []sdk.ContentBlockParamUnion
	if m.Content != "" {
		blocks = append(blocks, sdk.NewTextBlock(m.Content))
	}
	for _, tc := range m.ToolCalls {
		sanitized := ""
		for san, canon := range sanToCanon {
			if canon == tc.Name {
				sanitized = san
				break
			}
		}
		if sanitized == "" {
			sanitized = sanitizeToolName(tc.Name)
		}
		blocks = append(blocks, sdk.NewToolUseBlock(tc.ID, tc.Args, sanitized))
	}
	if m.Role == "tool" {
		blocks = append(blocks, sdk.NewToolResultBlock(m.ToolCallID, m.Content, false))
	}
	return blocks
}

func (b *AnthropicBackend) Complete(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (Message, error) {
	req, sanToCanon := b.prepareParams(messages, tools, params)
	msg, err := b.client.New(ctx, req)
	if err != nil {
		return Message{}, fmt.Errorf("backend: anthropic complete: %w", err)
	}
	return translateAnthropicMessage(msg, sanToCanon), nil
}

func translateAnthropicMessage(msg *sdk.Message, sanToCanon map[string]string) Message {
	out := Message{Role: "assistant"}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			name := block.Name
			if canon, ok := sanToCanon[name]; ok {
				name = canon
			}
			args, _ := block.Input.(map[string]interface{})
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: name, Args: args})
		}
	}
	return out
}

func (b *AnthropicBackend) Stream(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (<-chan Event, error) {
	req, sanToCanon := b.prepareParams(messages, tools, params)
	stream := b.client.NewStreaming(ctx, req)

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		var pendingToolName, pendingToolID string
		var pendingArgsJSON string
		finishReason := "stop"

		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "content_block_delta":
				if delta := event.Delta; delta.Text != "" {
					events <- Event{Kind: EventTextDelta, Text: delta.Text}
				} else if delta.PartialJSON != "" {
					pendingArgsJSON += delta.PartialJSON
				}
			case "content_block_start":
				if event.ContentBlock.Type == "tool_use" {
					pendingToolID = event.ContentBlock.ID
					pendingToolName = event.ContentBlock.Name
					pendingArgsJSON = ""
				}
			case "content_block_stop":
				if pendingToolName != "" {
					name := pendingToolName
					if canon, ok := sanToCanon[name]; ok {
						name = canon
					}
					events <- Event{Kind: EventToolCall, ToolCallID: pendingToolID, ToolName: name, ToolArgs: map[string]interface{}{"__raw": pendingArgsJSON}}
					pendingToolName = ""
				}
			case "message_delta":
				if event.Delta.StopReason != "" {
					finishReason = string(event.Delta.StopReason)
				}
			}
		}
		if err := stream.Err(); err != nil {
			events <- Event{Kind: EventFinish, Reason: "error"}
			return
		}
		events <- Event{Kind: EventFinish, Reason: finishReason}
	}()
	return events, nil
}
