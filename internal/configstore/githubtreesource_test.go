package configstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc routes every request to a fake handler regardless of host,
// since GitHubTreeSource's listing URL is hardcoded to api.github.com.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(body string) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}
}

func TestGitHubTreeSourceListsAndFetchesJSONFilesConcurrently(t *testing.T) {
	listing := `[
		{"name":"a.json","type":"file","download_url":"https://raw.example/a.json"},
		{"name":"readme.md","type":"file","download_url":"https://raw.example/readme.md"},
		{"name":"sub","type":"dir","download_url":""}
	]`
	contents := map[string]string{
		"https://raw.example/a.json": `{"name":"a","type":"openai"}`,
	}
	var authHeaderSeen string
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if strings.Contains(req.URL.Host, "api.github.com") {
			authHeaderSeen = req.Header.Get("Authorization")
			return jsonResponse(listing), nil
		}
		return jsonResponse(contents[req.URL.String()]), nil
	})}

	source := NewGitHubTreeSource(client, "acme", "models", "main", "configs", "tok-123")
	defs, err := source.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "a", defs[0].Name)
	assert.Equal(t, "token tok-123", authHeaderSeen)
}

func TestGitHubTreeSourceReturnsErrorOnNonOKListing(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(bytes.NewReader(nil)), Header: make(http.Header)}, nil
	})}

	source := NewGitHubTreeSource(client, "acme", "models", "main", "configs", "")
	_, err := source.Load(context.Background())

	require.Error(t, err)
}
