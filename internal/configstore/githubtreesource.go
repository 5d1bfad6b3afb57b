package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// GitHubTreeSource lists a GitHub repository directory via the contents API
// and fetches every *.json file concurrently, grounded on original
// github_config_reader.py's asyncio.gather fan-out — translated to plain
// net/http and goroutines with a channel fan-in, the teacher's manner of
// never reaching for a wrapping SDK.
type GitHubTreeSource struct {
	httpClient *http.Client
	owner, repo, branch, path string
	token                      string
}

// NewGitHubTreeSource builds a source for https://github.com/<owner>/<repo>/tree/<branch>/<path>.
func NewGitHubTreeSource(httpClient *http.Client, owner, repo, branch, path, token string) *GitHubTreeSource {
	return &GitHubTreeSource{httpClient: httpClient, owner: owner, repo: repo, branch: branch, path: path, token: token}
}

type githubContentItem struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

func (g *GitHubTreeSource) authHeader(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}
}

func (g *GitHubTreeSource) Load(ctx context.Context) ([]ModelDefinition, error) {
	listURL := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s?ref=%s", g.owner, g.repo, g.path, g.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("configstore: build list request: %w", err)
	}
	g.authHeader(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("configstore: list github tree %s: %w", listURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("configstore: list github tree %s: status %d", listURL, resp.StatusCode)
	}

	var items []githubContentItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("configstore: decode github tree listing: %w", err)
	}

	var jsonItems []githubContentItem
	for _, item := range items {
		if item.Type == "file" && strings.HasSuffix(item.Name, ".json") {
			jsonItems = append(jsonItems, item)
		}
	}

	type fetchResult struct {
		def ModelDefinition
		err error
	}
	results := make(chan fetchResult, len(jsonItems))
	for _, item := range jsonItems {
		item := item
		go func() {
			def, err := g.fetchOne(ctx, item)
			results <- fetchResult{def: def, err: err}
		}()
	}

	defs := make([]ModelDefinition, 0, len(jsonItems))
	var firstErr error
	for range jsonItems {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		defs = append(defs, r.def)
	}
	if len(defs) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return defs, nil
}

func (g *GitHubTreeSource) fetchOne(ctx context.Context, item githubContentItem) (ModelDefinition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.DownloadURL, nil)
	if err != nil {
		return ModelDefinition{}, fmt.Errorf("configstore: build request for %s: %w", item.Name, err)
	}
	g.authHeader(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return ModelDefinition{}, fmt.Errorf("configstore: fetch %s: %w", item.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ModelDefinition{}, fmt.Errorf("configstore: read %s: %w", item.Name, err)
	}
	var def ModelDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return ModelDefinition{}, fmt.Errorf("configstore: parse %s: %w", item.Name, err)
	}
	return def, nil
}
