// Package backend binds a model definition to a concrete chat backend
// capable of non-streaming and event-stream invocation, with tool-call
// support, per spec.md 4.D.
package backend

import "context"

// Message is the minimal internal message shape a backend client consumes:
// role plus either plain text content or a prior tool-call/tool-result.
type Message struct {
	Role       string // "system", "user", "assistant", "tool"
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is one assistant-emitted tool invocation request.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]interface{}
}

// ToolDecl is one tool's advertisement to the backend's tool-binding channel.
type ToolDecl struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// Params carries passthrough model parameters (temperature, top_p, ...).
type Params struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Extra       map[string]float64
}

// EventKind discriminates the unified event vocabulary the agent runtime
// consumes from any backend (spec.md 4.D).
type EventKind int

const (
	EventTextDelta EventKind = iota
	EventToolCall
	EventToolResult
	EventFinish
)

// Event is one item in a Stream's event sequence.
type Event struct {
	Kind       EventKind
	Text       string
	ToolCallID string
	ToolName   string
	ToolArgs   map[string]interface{}
	Content    string // EventToolResult content
	Reason     string // EventFinish reason: the upstream's stop reason (e.g. "stop", "length", "tool_use"), or "error"
}

// Client binds a model definition to a concrete upstream. Implementations
// own protocol-level detail (auth headers, payload shape); callers only see
// Message/ToolDecl/Event.
type Client interface {
	// Complete blocks until the final assistant message is produced.
	Complete(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (Message, error)
	// Stream returns a channel of events terminated by exactly one
	// EventFinish. The channel is closed after the finish event (or after
	// an error is returned instead).
	Stream(ctx context.Context, messages []Message, tools []ToolDecl, params Params) (<-chan Event, error)
}
