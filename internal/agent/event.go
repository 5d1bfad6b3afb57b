package agent

import (
	"encoding/json"

	"github.com/imranq2/language-model-gateway/internal/backend"
)

// EventKind discriminates the agent-level streaming event vocabulary
// consumed by internal/openaiapi's outbound adapter.
type EventKind int

const (
	// EventTextDelta forwards one backend text fragment immediately, so a
	// consumer reassembling by concatenation sees exactly what the model
	// produced (spec.md 4.E).
	EventTextDelta EventKind = iota
	// EventToolCallIntent is the single synthetic event emitted once the
	// full assistant message is known, carrying every tool call from that
	// think step together — not one event per call.
	EventToolCallIntent
	// EventToolResult is emitted once per joined observation, in the
	// assistant's original tool-call order.
	EventToolResult
	// EventFinish terminates the stream exactly once.
	EventFinish
)

// Event is one item in Stream's output channel.
type Event struct {
	Kind       EventKind
	Text       string
	ToolCalls  []backend.ToolCall // EventToolCallIntent
	ToolCallID string             // EventToolResult
	ToolName   string             // EventToolResult
	Content    string             // EventToolResult
	Reason     string             // EventFinish: "stop", "length", "tool_use", "cancelled", "error"
}

// decodeToolArgs resolves a backend client's streamed tool-call arguments.
// Streaming adapters accumulate raw JSON fragments under Args["__raw"] since
// partial JSON can't be parsed mid-stream; this is where that raw string is
// finally decoded, once the full assistant message is known.
func decodeToolArgs(args map[string]interface{}) map[string]interface{} {
	raw, ok := args["__raw"].(string)
	if !ok {
		return args
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]interface{}{}
	}
	return decoded
}
