package blobstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
)

// readChunkSize matches the teacher's explicit-buffer-sizing discipline
// (proxy/stream.go uses a sized bufio.Scanner buffer rather than the
// package default) so large blobs don't balloon memory on read.
const readChunkSize = 64 * 1024

// LocalStore persists blobs as files under a root directory.
type LocalStore struct {
	root          string
	publicBaseURL string
}

func NewLocalStore(root, publicBaseURL string) *LocalStore {
	return &LocalStore{root: root, publicBaseURL: publicBaseURL}
}

func (s *LocalStore) Save(ctx context.Context, folder, name string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("blobstore: create folder %q: %w", folder, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("blobstore: write %q: %w", path, err)
	}
	return path, nil
}

func (s *LocalStore) Read(ctx context.Context, folder, name string) (*Stream, error) {
	path := filepath.Join(s.root, folder, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, gatewayerrors.ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: open %q: %w", path, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Stream{ReadCloser: &chunkedReadCloser{f: f, r: bufio.NewReaderSize(f, readChunkSize)}, ContentType: contentType}, nil
}

func (s *LocalStore) ResolvePublicURL(name string) string {
	return fmt.Sprintf("%s/%s", s.publicBaseURL, name)
}

// chunkedReadCloser reads through a sized bufio.Reader while still closing
// the underlying file handle.
type chunkedReadCloser struct {
	f *os.File
	r *bufio.Reader
}

func (c *chunkedReadCloser) Read(p []byte) (int, error) { return c.r.Read(p) }
func (c *chunkedReadCloser) Close() error                { return c.f.Close() }

var _ io.ReadCloser = (*chunkedReadCloser)(nil)
