// Package blobstore reads and writes opaque byte blobs under a (folder,
// name) key, either on the local filesystem or in a remote object store,
// per spec.md 4.A.
package blobstore

import (
	"context"
	"io"
	"strings"

	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
)

// Stream is a lazy byte sequence plus its content type. Callers must Close it.
type Stream struct {
	io.ReadCloser
	ContentType string
}

// Store is the uniform blob-store contract. Implementations must be safe
// for concurrent use (spec.md 5: "the blob-store interface is stateless").
type Store interface {
	// Save writes bytes under (folder, name) and returns a location string
	// usable by a later Read. Empty-byte writes are rejected with a nil
	// location and no error (spec.md 4.A edge case).
	Save(ctx context.Context, folder, name string, data []byte, contentType string) (location string, err error)
	// Read streams the blob back. Returns gatewayerrors.ErrNotFound for a
	// missing key, distinct from other I/O errors.
	Read(ctx context.Context, folder, name string) (*Stream, error)
	// ResolvePublicURL composes a client-facing URL for a previously saved
	// blob name from the process-wide base URL.
	ResolvePublicURL(name string) string
}

// New selects a backend by scheme prefix on folder: "s3://bucket/prefix"
// routes to S3, anything else is treated as a local filesystem path.
// publicBaseURL is the IMAGE_GENERATION_URL base used by ResolvePublicURL.
func New(ctx context.Context, folder, publicBaseURL string, s3Client S3API) (Store, error) {
	if strings.HasPrefix(folder, "s3://") {
		bucket, prefix, ok := strings.Cut(strings.TrimPrefix(folder, "s3://"), "/")
		if !ok {
			bucket = strings.TrimPrefix(folder, "s3://")
		}
		if s3Client == nil {
			return nil, gatewayerrors.ErrNotFound
		}
		return NewS3Store(s3Client, bucket, prefix, publicBaseURL), nil
	}
	return NewLocalStore(folder, publicBaseURL), nil
}
