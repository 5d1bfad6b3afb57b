// Package agent implements the think/act/finish state machine that drives
// one chat request's reason-act-observe loop over a backend client and a
// tool registry, per spec.md 4.E. Grounded on the teacher's proxy/stream.go
// chunk-reconstruction loop for the reassemble-then-emit shape; the
// think/act/observe step structure itself follows taipm-go-deep-agent's
// ReAct-loop examples (consulted for idiomatic shape only, no code copied —
// that repo is reference material, not the teacher).
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/imranq2/language-model-gateway/internal/backend"
	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/toolregistry"
)

// DefaultMaxSteps bounds the number of think/act cycles a single request may
// run before the loop is force-finished with reason "length".
const DefaultMaxSteps = 8

// State is the loop's mutable working set: the running message list, how
// many think steps have elapsed, and whether an external cancellation has
// been observed.
type State struct {
	Messages  []backend.Message
	StepCount int
	Cancelled bool

	lastErrorTool string
	errorStreak   int
}

// Result is what Run returns once the loop finishes; Stream reports the same
// outcome as Events instead.
type Result struct {
	Message backend.Message
	Reason  string // "stop", "length", "tool_use", "cancelled"
}

// Runtime binds a backend client and tool registry into a runnable agent
// loop. Stateless across requests — all mutable state lives in State.
type Runtime struct {
	Client   backend.Client
	Tools    *toolregistry.Registry
	MaxSteps int
	Logger   logging.Logger
}

func New(client backend.Client, tools *toolregistry.Registry, logger logging.Logger) *Runtime {
	return &Runtime{Client: client, Tools: tools, MaxSteps: DefaultMaxSteps, Logger: logger}
}

func (r *Runtime) maxSteps() int {
	if r.MaxSteps <= 0 {
		return DefaultMaxSteps
	}
	return r.MaxSteps
}

func (r *Runtime) toolDecls() []backend.ToolDecl {
	if r.Tools == nil {
		return nil
	}
	decls := r.Tools.Declarations()
	out := make([]backend.ToolDecl, 0, len(decls))
	for _, d := range decls {
		out = append(out, backend.ToolDecl{Name: d.Name, Description: d.Description, Schema: d.Schema.JSONSchema()})
	}
	return out
}

// Run drives the loop to completion without streaming, returning the final
// assistant message and finish reason.
func (r *Runtime) Run(ctx context.Context, state *State, params backend.Params) (Result, error) {
	tools := r.toolDecls()
	for {
		if ctx.Err() != nil || state.Cancelled {
			return Result{Message: lastAssistantMessage(state.Messages), Reason: "cancelled"}, nil
		}
		assistant, err := r.Client.Complete(ctx, state.Messages, tools, params)
		if err != nil {
			return Result{}, fmt.Errorf("agent: think: %w", err)
		}
		state.Messages = append(state.Messages, assistant)
		state.StepCount++

		if len(assistant.ToolCalls) == 0 {
			return Result{Message: assistant, Reason: "stop"}, nil
		}
		if state.StepCount >= r.maxSteps() {
			return Result{Message: assistant, Reason: "length"}, nil
		}

		observations, shortCircuit := r.act(ctx, state, assistant.ToolCalls)
		state.Messages = append(state.Messages, observations...)
		if shortCircuit {
			return Result{Message: assistant, Reason: "tool_use"}, nil
		}
	}
}

// Stream drives the loop in streaming mode: text deltas are forwarded as
// they arrive, tool-call events are buffered per think step and emitted as
// one EventToolCallIntent once the full assistant message is known, then
// tool observations are emitted after their join (spec.md 4.E's streaming
// event translation).
func (r *Runtime) Stream(ctx context.Context, state *State, params backend.Params) (<-chan Event, error) {
	tools := r.toolDecls()
	out := make(chan Event, 16)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil || state.Cancelled {
				out <- Event{Kind: EventFinish, Reason: "cancelled"}
				return
			}

			backendEvents, err := r.Client.Stream(ctx, state.Messages, tools, params)
			if err != nil {
				out <- Event{Kind: EventFinish, Reason: "error"}
				return
			}

			assistant := backend.Message{Role: "assistant"}
			var toolCalls []backend.ToolCall
			finishReason := "stop"
			for ev := range backendEvents {
				switch ev.Kind {
				case backend.EventTextDelta:
					assistant.Content += ev.Text
					out <- Event{Kind: EventTextDelta, Text: ev.Text}
				case backend.EventToolCall:
					toolCalls = append(toolCalls, backend.ToolCall{ID: ev.ToolCallID, Name: ev.ToolName, Args: decodeToolArgs(ev.ToolArgs)})
				case backend.EventFinish:
					finishReason = ev.Reason
				}
			}
			assistant.ToolCalls = toolCalls
			state.Messages = append(state.Messages, assistant)
			state.StepCount++

			if len(toolCalls) == 0 {
				out <- Event{Kind: EventFinish, Reason: finishReason}
				return
			}
			out <- Event{Kind: EventToolCallIntent, ToolCalls: toolCalls}

			if state.StepCount >= r.maxSteps() {
				out <- Event{Kind: EventFinish, Reason: "length"}
				return
			}

			observations, shortCircuit := r.act(ctx, state, toolCalls)
			state.Messages = append(state.Messages, observations...)
			for i, obs := range observations {
				out <- Event{Kind: EventToolResult, ToolCallID: obs.ToolCallID, ToolName: toolCalls[i].Name, Content: obs.Content}
			}
			if shortCircuit {
				out <- Event{Kind: EventFinish, Reason: "tool_use"}
				return
			}
		}
	}()

	return out, nil
}

// act dispatches every tool call in a single think step concurrently,
// joining results back in the assistant's original call order (spec.md
// 4.E's ordering guarantee — not completion order). Returns true when two
// consecutive tool errors share the same tool name, which forces the loop
// to finish early rather than spin.
func (r *Runtime) act(ctx context.Context, state *State, calls []backend.ToolCall) ([]backend.Message, bool) {
	results := make([]backend.Message, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call backend.ToolCall) {
			defer wg.Done()
			results[i] = r.invokeOne(ctx, call)
		}(i, call)
	}
	wg.Wait()

	for i, call := range calls {
		if toolMessageIsError(results[i]) {
			if state.lastErrorTool == call.Name && state.errorStreak >= 1 {
				state.errorStreak++
				return results[:i+1], true
			}
			state.lastErrorTool = call.Name
			state.errorStreak = 1
		} else {
			state.lastErrorTool = ""
			state.errorStreak = 0
		}
	}
	return results, false
}

// invokeOne normalizes/validates/invokes one tool call and always returns a
// well-formed tool message: validation and invocation failures become
// observation content rather than propagating as request-level errors
// (spec.md 4.E edge-case policies).
func (r *Runtime) invokeOne(ctx context.Context, call backend.ToolCall) backend.Message {
	if r.Tools == nil {
		return errorToolMessage(call, "no tool registry configured")
	}
	content, _, err := r.Tools.Invoke(ctx, call.Name, call.Args)
	if err != nil {
		return errorToolMessage(call, err.Error())
	}
	return backend.Message{Role: "tool", Content: content, ToolCallID: call.ID}
}

func errorToolMessage(call backend.ToolCall, reason string) backend.Message {
	return backend.Message{Role: "tool", Content: "error: " + reason, ToolCallID: call.ID}
}

// toolMessageIsError is a heuristic over invokeOne's own output: every error
// path prefixes content with "error: ", so this never needs to inspect the
// original gatewayerrors sentinel (which invokeOne already collapsed into
// text).
func toolMessageIsError(m backend.Message) bool {
	return len(m.Content) >= len("error: ") && m.Content[:len("error: ")] == "error: "
}

func lastAssistantMessage(messages []backend.Message) backend.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" {
			return messages[i]
		}
	}
	return backend.Message{Role: "assistant"}
}
