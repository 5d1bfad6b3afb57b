package openaiapi

import (
	"encoding/json"

	"github.com/imranq2/language-model-gateway/internal/backend"
	"github.com/imranq2/language-model-gateway/internal/configstore"
)

// ToInternalMessages converts a request's message list into the backend
// package's normalized shape, prepending the model definition's
// system_prompts in order when the client supplied no system message of its
// own (spec.md 4.F inbound translation).
func ToInternalMessages(req ChatCompletionRequest, def configstore.ModelDefinition) []backend.Message {
	out := make([]backend.Message, 0, len(req.Messages)+len(def.SystemPrompts))

	if !hasSystemMessage(req.Messages) {
		for _, p := range def.SystemPrompts {
			out = append(out, backend.Message{Role: p.Role, Content: p.Content})
		}
	}

	for _, m := range req.Messages {
		out = append(out, toInternalMessage(m))
	}
	return out
}

func hasSystemMessage(messages []Message) bool {
	for _, m := range messages {
		if m.Role == "system" {
			return true
		}
	}
	return false
}

func toInternalMessage(m Message) backend.Message {
	msg := backend.Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
	for _, tc := range m.ToolCalls {
		var args map[string]interface{}
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		msg.ToolCalls = append(msg.ToolCalls, backend.ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return msg
}

// EffectiveParams maps a model definition's model_parameters into backend
// request parameters (SPEC_FULL.md §5's model-parameter-passthrough).
func EffectiveParams(def configstore.ModelDefinition) backend.Params {
	var params backend.Params
	for _, p := range def.ModelParameters {
		v := p.Value
		switch p.Key {
		case "temperature":
			params.Temperature = &v
		case "top_p":
			params.TopP = &v
		case "max_tokens":
			mt := int(v)
			params.MaxTokens = &mt
		default:
			if params.Extra == nil {
				params.Extra = map[string]float64{}
			}
			params.Extra[p.Key] = v
		}
	}
	return params
}

// LastUserMessageText returns the content of the last user-role message, the
// text the completion manager checks against "help" (spec.md 4.G step 3).
func LastUserMessageText(req ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
