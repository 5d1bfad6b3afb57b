// Package imagegen defines the image-generation contract and its HTTP
// surface (spec.md 4.I, POST /images/generations). Concrete generators
// (DALL-E, Bedrock/Titan, ...) are a Non-goal per spec.md §1 — "concrete
// image generation backends treated as a plug-in tool registry with a
// common invocation contract" — so this package only ships the interface,
// the request/response wire shapes, and the handler wiring a configured
// Generator through to the blob store.
package imagegen

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/imranq2/language-model-gateway/internal/blobstore"
	"github.com/imranq2/language-model-gateway/internal/logging"
)

// Style and Size mirror the original image_generator.py's Literal unions;
// kept as plain strings rather than enums since the gateway never
// interprets them itself, only forwards them to a Generator.
type Request struct {
	Prompt    string `json:"prompt"`
	Style     string `json:"style,omitempty"`
	ImageSize string `json:"size,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Generator produces image bytes from a prompt. Implementations own
// provider-specific detail (API shape, auth, retry); the handler only sees
// bytes and a content type — ground: image_generator.py's
// generate_image_async abstract method, image_generator_factory.py's
// factory-of-interface shape translated to a constructor function a caller
// supplies at wiring time rather than a runtime `match` dispatch.
type Generator interface {
	Generate(ctx context.Context, req Request) (data []byte, contentType string, err error)
}

// Response is the wire shape /images/generations returns. Handler fills
// URL with the stored blob's public URL; it never sets B64JSON.
type Response struct {
	Created int64            `json:"created"`
	Data    []ResponseImage  `json:"data"`
}

type ResponseImage struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

// Handler serves POST /images/generations, delegating byte production to a
// Generator and persisting the result through the blob store under an
// opaque UUID name (spec.md 6's "Persisted state: blobs ... under opaque
// UUID-named keys").
type Handler struct {
	Generator Generator
	Blobs     blobstore.Store
	Folder    string
	Logger    logging.Logger
	Now       func() int64
}

func NewHandler(generator Generator, blobs blobstore.Store, folder string, logger logging.Logger, now func() int64) *Handler {
	return &Handler{Generator: generator, Blobs: blobs, Folder: folder, Logger: logger, Now: now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if h.Generator == nil {
		http.Error(w, "no image generator configured", http.StatusNotImplemented)
		return
	}

	data, contentType, err := h.Generator.Generate(r.Context(), req)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("image generation failed", map[string]interface{}{"error": err.Error()})
		}
		http.Error(w, "image generation failed", http.StatusInternalServerError)
		return
	}

	name := uuid.New().String()
	location, err := h.Blobs.Save(r.Context(), h.Folder, name, data, contentType)
	if err != nil {
		http.Error(w, "failed to store generated image", http.StatusInternalServerError)
		return
	}

	url := ""
	if location != "" {
		url = h.Blobs.ResolvePublicURL(name)
	}
	resp := Response{Created: h.Now(), Data: []ResponseImage{{URL: url}}}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil && h.Logger != nil {
		h.Logger.Error("failed to encode image generation response", map[string]interface{}{"error": err.Error()})
	}
}

// BlobHandler serves GET /image_generation/{path...}, streaming a
// previously saved blob back (spec.md 6, scenario S6: a missing name
// returns HTTP 404 with body "File not found").
type BlobHandler struct {
	Blobs  blobstore.Store
	Folder string
}

func NewBlobHandler(blobs blobstore.Store, folder string) *BlobHandler {
	return &BlobHandler{Blobs: blobs, Folder: folder}
}

func (h *BlobHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("path")
	stream, err := h.Blobs.Read(r.Context(), h.Folder, name)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer stream.Close()

	if stream.ContentType != "" {
		w.Header().Set("Content-Type", stream.ContentType)
	}
	_, _ = io.Copy(w, stream)
}
