package openaiapi

import (
	"encoding/json"
	"strings"

	"github.com/imranq2/language-model-gateway/internal/backend"
)

// UnaryResponse builds the single-choice OpenAI completion object from the
// agent's final message, with a zero-valued usage block (spec.md 4.F
// outbound unary: "one choice containing the message, finish_reason, and a
// zero-valued usage block").
func UnaryResponse(id string, createdAt int64, model string, msg backend.Message, finishReason string) ChatCompletionResponse {
	return ChatCompletionResponse{
		ID:                id,
		Object:            "chat.completion",
		Created:           createdAt,
		Model:             model,
		SystemFingerprint: systemFingerprint,
		Choices: []Choice{{
			Index:        0,
			Message:      toWireMessage(msg),
			FinishReason: finishReason,
		}},
		Usage: Usage{},
	}
}

const systemFingerprint = "gateway"

func toWireMessage(msg backend.Message) Message {
	wire := Message{Role: msg.Role, Content: msg.Content, ToolCallID: msg.ToolCallID}
	for _, tc := range msg.ToolCalls {
		argsJSON, _ := json.Marshal(tc.Args)
		wire.ToolCalls = append(wire.ToolCalls, ToolCall{ID: tc.ID, Type: "function", Function: ToolCallFunction{Name: tc.Name, Arguments: string(argsJSON)}})
	}
	return wire
}

// HelpResponse assembles the canned help-command response body (spec.md
// 4.G step 3, scenario S1): the model's description, followed by an
// "Example prompts:" section when the definition has any, joined by
// newlines — directly grounded on chat_completion_manager.py's literal
// "\n\nExample prompts:\n" + "\n".join(...) construction.
func HelpResponse(id string, createdAt int64, model, description string, examplePrompts []string) ChatCompletionResponse {
	content := description
	if len(examplePrompts) > 0 {
		content += "\n\nExample prompts:\n" + strings.Join(examplePrompts, "\n")
	}
	return UnaryResponse(id, createdAt, model, backend.Message{Role: "assistant", Content: content}, "stop")
}
