package configstore

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestGitHubArchiveSourceDownloadsExtractsAndParses(t *testing.T) {
	archive := buildZip(t, map[string]string{"repo-main/models/a.json": `{"name":"a","type":"openai"}`})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(archive)
	}))
	defer server.Close()

	source := &GitHubArchiveSource{httpClient: server.Client(), zipURL: server.URL, maxRetries: 3, baseDelay: time.Millisecond}
	defs, err := source.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "a", defs[0].Name)
}

func TestGitHubArchiveSourceRetriesOnFailureThenSucceeds(t *testing.T) {
	archive := buildZip(t, map[string]string{"repo-main/a.json": `{"name":"a","type":"openai"}`})
	attempt := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempt++
		if attempt < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(archive)
	}))
	defer server.Close()

	source := &GitHubArchiveSource{httpClient: server.Client(), zipURL: server.URL, maxRetries: 3, baseDelay: time.Millisecond}
	defs, err := source.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, 2, attempt)
}

func TestGitHubArchiveSourceReturnsErrorAfterExhaustingRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := &GitHubArchiveSource{httpClient: server.Client(), zipURL: server.URL, maxRetries: 2, baseDelay: time.Millisecond}
	_, err := source.Load(context.Background())

	require.Error(t, err)
}
