// Package openaiapi translates between the OpenAI chat-completion wire
// format and the gateway's internal message/event vocabulary, per spec.md
// 4.F. Grounded directly on the teacher's types/openai.go wire structs.
package openaiapi

import "encoding/json"

// ChatCompletionRequest is the inbound wire shape clients POST to
// /api/v1/chat/completions.
type ChatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []Message       `json:"messages"`
	Stream      bool            `json:"stream,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Tools       []Tool          `json:"tools,omitempty"`
	ToolChoice  interface{}     `json:"tool_choice,omitempty"`
	ContentRaw  []ContentPart   `json:"-"`
	Extra       map[string]any  `json:"-"`
}

// Message mirrors the teacher's OpenAIMessage, generalized so Content may
// carry either plain text or typed content parts (spec.md 3's Chat
// request: "content which is either a string or an ordered sequence of
// typed content parts").
type Message struct {
	Role         string        `json:"role"`
	Content      string        `json:"content"`
	ContentParts []ContentPart `json:"-"`
	Name         string        `json:"name,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID   string        `json:"tool_call_id,omitempty"`
}

// ContentPart is one opaque typed content part (text, image, tool-result)
// preserved verbatim when not plain text.
type ContentPart struct {
	Type string                 `json:"type"`
	Text string                 `json:"text,omitempty"`
	Raw  map[string]interface{} `json:"-"`
}

// MarshalJSON re-encodes a part decoded from the wire from its raw fields,
// so a non-text part keeps fields beyond type and text (e.g. image_url).
func (p ContentPart) MarshalJSON() ([]byte, error) {
	if p.Raw != nil {
		return json.Marshal(p.Raw)
	}
	type alias ContentPart
	return json.Marshal(alias(p))
}

// UnmarshalJSON accepts content as either a plain string or an ordered
// sequence of typed content parts (spec.md 3's Chat request), storing
// whichever shape arrived so outbound re-encoding round-trips it.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var aux struct {
		alias
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Message(aux.alias)

	if len(aux.Content) == 0 {
		return nil
	}
	var asString string
	if err := json.Unmarshal(aux.Content, &asString); err == nil {
		m.Content = asString
		return nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(aux.Content, &parts); err != nil {
		return err
	}
	for _, raw := range parts {
		var part ContentPart
		if err := json.Unmarshal(raw, &part); err != nil {
			return err
		}
		var rawMap map[string]interface{}
		_ = json.Unmarshal(raw, &rawMap)
		part.Raw = rawMap
		m.ContentParts = append(m.ContentParts, part)
		if part.Type == "text" {
			m.Content += part.Text
		}
	}
	return nil
}

// MarshalJSON re-encodes content as a plain string when there are no typed
// parts, or as the typed-part array otherwise — preserving whichever shape
// the client used.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	if len(m.ContentParts) == 0 {
		return json.Marshal(struct {
			alias
			Content string `json:"content"`
		}{alias(m), m.Content})
	}
	return json.Marshal(struct {
		alias
		Content []ContentPart `json:"content"`
	}{alias(m), m.ContentParts})
}

type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
	Index    *int             `json:"index,omitempty"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatCompletionResponse is the outbound unary wire shape.
type ChatCompletionResponse struct {
	ID                string   `json:"id"`
	Object            string   `json:"object"`
	Created           int64    `json:"created"`
	Model             string   `json:"model"`
	SystemFingerprint string   `json:"system_fingerprint,omitempty"`
	Choices           []Choice `json:"choices"`
	Usage             Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChunk is one SSE frame's JSON payload in streaming mode.
type ChatCompletionChunk struct {
	ID                string        `json:"id"`
	Object            string        `json:"object"`
	Created           int64         `json:"created"`
	Model             string        `json:"model"`
	SystemFingerprint string        `json:"system_fingerprint"`
	Choices           []StreamChoice `json:"choices"`
}

type StreamChoice struct {
	Index        int          `json:"index"`
	Delta        StreamDelta  `json:"delta"`
	FinishReason *string      `json:"finish_reason"`
}

type StreamDelta struct {
	Role      string     `json:"role,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ModelsListResponse is /api/v1/models' wire shape.
type ModelsListResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}
