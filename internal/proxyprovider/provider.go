// Package proxyprovider implements the pass-through OpenAI-to-OpenAI
// forwarding path (spec.md 4.H, type=openai model definitions). Grounded on
// the teacher's proxyToProviderEndpoint/ProcessStreamingResponse
// (proxy/handler.go, proxy/stream.go), adapted from Anthropic<->OpenAI
// translation down to OpenAI<->OpenAI passthrough. The request and each SSE
// frame are re-encoded through the openaiapi wire structs rather than copied
// byte-for-byte, so fields those structs do not model are not forwarded.
package proxyprovider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/imranq2/language-model-gateway/internal/configstore"
	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/metrics"
	"github.com/imranq2/language-model-gateway/internal/openaiapi"
)

const proxyProvider = "openai_proxy"

func observeBackendCall(start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.BackendRequestDuration.WithLabelValues(proxyProvider, outcome).Observe(time.Since(start).Seconds())
	metrics.BackendRequestsTotal.WithLabelValues(proxyProvider, outcome).Inc()
}

// StatusError carries the upstream HTTP status code, letting backend.isRetryable-
// style callers distinguish transient failures from fatal ones.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int { return e.Code }

// Provider forwards chat completion requests to a configured upstream
// OpenAI-compatible endpoint after substituting the definition's model ID,
// prepending its system prompts when the client sent no system message, and
// setting the auth headers the definition carries.
type Provider struct {
	HTTPClient         *http.Client
	ConnectionTimeout  time.Duration
	RequestTimeout     time.Duration
	Logger             logging.Logger
}

// New builds a Provider with the teacher's dialer-level connection timeout
// (10s) plus a per-request timeout (5 minutes). Both apply to every call;
// nothing in a model definition changes them.
func New(logger logging.Logger) *Provider {
	return &Provider{
		ConnectionTimeout: 10 * time.Second,
		RequestTimeout:    5 * time.Minute,
		Logger:            logger,
	}
}

func (p *Provider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{
		Timeout: p.RequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: p.ConnectionTimeout}).DialContext,
		},
	}
}

func applyDefinition(req openaiapi.ChatCompletionRequest, def configstore.ModelDefinition) openaiapi.ChatCompletionRequest {
	if def.Backend != nil && def.Backend.ModelID != "" {
		req.Model = def.Backend.ModelID
	}
	hasSystem := false
	for _, m := range req.Messages {
		if m.Role == "system" {
			hasSystem = true
			break
		}
	}
	if !hasSystem && len(def.SystemPrompts) > 0 {
		msgs := make([]openaiapi.Message, 0, len(def.SystemPrompts)+len(req.Messages))
		for _, p := range def.SystemPrompts {
			msgs = append(msgs, openaiapi.Message{Role: p.Role, Content: p.Content})
		}
		req.Messages = append(msgs, req.Messages...)
	}
	return req
}

func (p *Provider) newUpstreamRequest(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, def.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("proxyprovider: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for _, h := range def.Headers {
		httpReq.Header.Set(h.Key, h.Value)
	}
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			httpReq.Header.Set(k, v)
		}
	}
	return httpReq, nil
}

// Complete sends a single POST and parses the response body — spec.md
// 4.H's non-streaming path.
func (p *Provider) Complete(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (resp2 openaiapi.ChatCompletionResponse, err error) {
	start := time.Now()
	defer func() { observeBackendCall(start, err) }()

	req = applyDefinition(req, def)
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, fmt.Errorf("proxyprovider: marshal request: %w", err)
	}
	httpReq, err := p.newUpstreamRequest(ctx, def, headers, body)
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, err
	}

	resp, err := p.client().Do(httpReq)
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, fmt.Errorf("proxyprovider: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return openaiapi.ChatCompletionResponse{}, fmt.Errorf("proxyprovider: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err = &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		return openaiapi.ChatCompletionResponse{}, err
	}

	var out openaiapi.ChatCompletionResponse
	if err = json.Unmarshal(respBody, &out); err != nil {
		return openaiapi.ChatCompletionResponse{}, fmt.Errorf("proxyprovider: parse response: %w", err)
	}
	return out, nil
}

// Stream opens an SSE connection upstream and copies every data frame to
// the returned channel, preserving ordering and terminating on the
// upstream's [DONE] marker — spec.md 4.H's streaming path. A frame that
// fails to decode is logged and skipped rather than aborting the stream.
func (p *Provider) Stream(ctx context.Context, def configstore.ModelDefinition, headers map[string]string, req openaiapi.ChatCompletionRequest) (out <-chan openaiapi.ChatCompletionChunk, err error) {
	start := time.Now()
	defer func() { observeBackendCall(start, err) }()

	req = applyDefinition(req, def)
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("proxyprovider: marshal request: %w", err)
	}
	httpReq, err := p.newUpstreamRequest(ctx, def, headers, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("proxyprovider: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		err = &StatusError{Code: resp.StatusCode, Body: string(respBody)}
		return nil, err
	}

	frames := make(chan openaiapi.ChatCompletionChunk, 8)
	go p.copyFrames(resp.Body, frames)
	return frames, nil
}

func (p *Provider) copyFrames(body io.ReadCloser, out chan<- openaiapi.ChatCompletionChunk) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		jsonStr := strings.TrimPrefix(line, "data: ")
		if jsonStr == "[DONE]" {
			return
		}

		var chunk openaiapi.ChatCompletionChunk
		if err := json.Unmarshal([]byte(jsonStr), &chunk); err != nil {
			if p.Logger != nil {
				p.Logger.Warn("failed to decode upstream streaming frame", map[string]interface{}{"error": err.Error()})
			}
			continue
		}
		out <- chunk
	}
	if err := scanner.Err(); err != nil && p.Logger != nil {
		p.Logger.Warn("upstream stream read error", map[string]interface{}{"error": err.Error()})
	}
}
