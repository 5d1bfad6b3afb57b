package openaiapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/imranq2/language-model-gateway/internal/agent"
	"github.com/imranq2/language-model-gateway/internal/backend"
)

// StreamWriter writes agent events as OpenAI ChatCompletionChunk SSE frames,
// grounded on the teacher's writeSSEEvent (proxy/handler.go): a bare
// "data: <json>\n\n" line followed by an explicit Flush, generalized from
// Anthropic-shaped named events to OpenAI's unnamed data-only chunks, and
// terminated by the literal "data: [DONE]\n\n" line (spec.md 4.F outbound
// streaming).
type StreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	chunker chunker
}

func NewStreamWriter(w http.ResponseWriter, id string, created int64, model string) *StreamWriter {
	flusher, _ := w.(http.Flusher)
	return &StreamWriter{w: w, flusher: flusher, chunker: chunker{id: id, created: created, model: model}}
}

// WriteEvents drains events, translating each into zero or more chunks, and
// finishes with the [DONE] terminator once the event channel closes — even
// on an early agent error — so the client's stream reader never blocks
// indefinitely. A failed chunk write returns that error without [DONE].
func (s *StreamWriter) WriteEvents(events <-chan agent.Event) error {
	for ev := range events {
		chunk, ok := s.chunker.translate(ev)
		if !ok {
			continue
		}
		if err := s.writeChunk(chunk); err != nil {
			return err
		}
	}
	return s.writeDone()
}

// ChunksFromEvents translates an agent event stream into a channel of
// ChatCompletionChunk, for a Provider.Stream implementation backed by the
// agent runtime rather than an http.ResponseWriter (internal/completion's
// type=langchain dispatch, spec.md 4.G step 6). No [DONE] terminator here —
// that belongs to the HTTP transport layer writing the channel out as SSE.
func ChunksFromEvents(events <-chan agent.Event, id string, created int64, model string) <-chan ChatCompletionChunk {
	c := chunker{id: id, created: created, model: model}
	out := make(chan ChatCompletionChunk, 8)
	go func() {
		defer close(out)
		for ev := range events {
			chunk, ok := c.translate(ev)
			if !ok {
				continue
			}
			out <- chunk
		}
	}()
	return out
}

// chunker holds the per-stream identity fields every chunk carries,
// independent of where the chunk ultimately gets written.
type chunker struct {
	id      string
	created int64
	model   string
}

func (c chunker) translate(ev agent.Event) (ChatCompletionChunk, bool) {
	switch ev.Kind {
	case agent.EventTextDelta:
		return c.chunk(StreamDelta{Content: ev.Text}, nil), true
	case agent.EventToolCallIntent:
		return c.chunk(StreamDelta{ToolCalls: toWireToolCalls(ev.ToolCalls)}, nil), true
	case agent.EventFinish:
		reason := ev.Reason
		return c.chunk(StreamDelta{}, &reason), true
	default:
		return ChatCompletionChunk{}, false
	}
}

func toWireToolCalls(calls []backend.ToolCall) []ToolCall {
	out := make([]ToolCall, 0, len(calls))
	for i, tc := range calls {
		idx := i
		argsJSON, _ := json.Marshal(tc.Args)
		out = append(out, ToolCall{ID: tc.ID, Type: "function", Index: &idx, Function: ToolCallFunction{Name: tc.Name, Arguments: string(argsJSON)}})
	}
	return out
}

func (c chunker) chunk(delta StreamDelta, finishReason *string) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:                c.id,
		Object:            "chat.completion.chunk",
		Created:           c.created,
		Model:             c.model,
		SystemFingerprint: systemFingerprint,
		Choices:           []StreamChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}
}

func (s *StreamWriter) writeChunk(chunk ChatCompletionChunk) error {
	encoded, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", encoded); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *StreamWriter) writeDone() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
