package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/imranq2/language-model-gateway/internal/completion"
	"github.com/imranq2/language-model-gateway/internal/configstore"
	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/metrics"
	"github.com/imranq2/language-model-gateway/internal/openaiapi"
	"github.com/imranq2/language-model-gateway/internal/requestctx"
)

// gatewayServer bundles the wired components cmd/gateway's HandleFuncs
// close over — no DI container, explicit fields only (spec.md 9's "ad-hoc
// container... replaced by explicit constructor wiring").
type gatewayServer struct {
	completion *completion.Manager
	store      *configstore.Store
	logger     logging.Logger
}

func (s *gatewayServer) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	requestID := requestctx.New()
	ctx := requestctx.WithRequestID(r.Context(), requestID)
	logger := s.logger.WithContext(ctx).WithComponent(logging.ComponentCompletion).WithCategory(logging.CategoryRequest)

	var req openaiapi.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body")
		return
	}
	headers := forwardableHeaders(r)

	if req.Stream {
		s.handleStream(ctx, w, requestID, headers, req, logger)
		return
	}

	resp, err := s.completion.Complete(ctx, headers, req)
	if err != nil {
		var notFound *completion.ModelNotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusOK, err.Error())
			return
		}
		writeCompletionError(w, err, requestID, logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStream runs the streaming control flow and writes SSE frames as
// they arrive, finishing with the [DONE] terminator once the chunk channel
// closes; a failed client write ends the handler without it — spec.md 7's
// cancelled-stream policy ("closed cleanly with a [DONE] terminator if at
// least one frame was sent").
func (s *gatewayServer) handleStream(ctx context.Context, w http.ResponseWriter, requestID string, headers map[string]string, req openaiapi.ChatCompletionRequest, logger logging.Logger) {
	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	chunks, err := s.completion.Stream(ctx, headers, req)
	if err != nil {
		var notFound *completion.ModelNotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusOK, err.Error())
			return
		}
		writeCompletionError(w, err, requestID, logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	for chunk := range chunks {
		encoded, err := json.Marshal(chunk)
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("data: " + string(encoded) + "\n\n")); err != nil {
			logger.Warn("client disconnected mid-stream", map[string]interface{}{"request_id": requestID})
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	w.Write([]byte("data: [DONE]\n\n"))
	if flusher != nil {
		flusher.Flush()
	}
}

func forwardableHeaders(r *http.Request) map[string]string {
	headers := map[string]string{}
	if auth := r.Header.Get("Authorization"); auth != "" {
		headers["Authorization"] = auth
	}
	return headers
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, gatewayerrors.StructuredError{Message: message, Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

// writeCompletionError implements spec.md 7's propagation policy for the
// non-streaming path: model-unknown is a body-level error at HTTP 200
// (OpenAI convention, scenario S2) handled by the caller before reaching
// here; everything else propagates as a structured 5xx.
func writeCompletionError(w http.ResponseWriter, err error, requestID string, logger logging.Logger) {
	status := http.StatusInternalServerError
	if errors.Is(err, gatewayerrors.ErrBackendTransient) {
		status = http.StatusServiceUnavailable
	}
	logger.Error("chat completion failed", map[string]interface{}{"error": err.Error(), "request_id": requestID})
	writeJSON(w, status, gatewayerrors.StructuredError{
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   requestID,
		CallStack: string(debug.Stack()),
	})
}

func (s *gatewayServer) handleModels(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Get(r.Context())
	listing := snapshot.Listing()
	resp := openaiapi.ModelsListResponse{Object: "list", Data: make([]openaiapi.ModelInfo, 0, len(listing))}
	for _, def := range listing {
		resp.Data = append(resp.Data, openaiapi.ModelInfo{ID: def.Name, Object: "model", Created: snapshot.LoadedAt.Unix(), OwnedBy: def.Owner})
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
