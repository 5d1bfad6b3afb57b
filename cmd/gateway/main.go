// Command gateway wires every internal package into one HTTP process: an
// OpenAI-compatible chat-completion endpoint dispatching to either a
// pass-through proxy or an agent runtime, model listing, image generation,
// and health/metrics endpoints. Wiring is explicit constructor calls, no
// container, no runtime registration after start — spec.md 9's "ad-hoc
// container / dependency injection... replaced by explicit constructor
// wiring at process start", the same shape the teacher's flat main.go uses.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/imranq2/language-model-gateway/internal/blobstore"
	"github.com/imranq2/language-model-gateway/internal/completion"
	"github.com/imranq2/language-model-gateway/internal/configstore"
	"github.com/imranq2/language-model-gateway/internal/imagegen"
	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/metrics"
	"github.com/imranq2/language-model-gateway/internal/proxyprovider"
	"github.com/imranq2/language-model-gateway/internal/requestctx"
	"github.com/imranq2/language-model-gateway/internal/toolregistry"
)

func main() {
	ctx := context.Background()
	logger := logging.New(ctx, logging.NewObservabilityLogger())

	source, err := buildConfigSource(ctx)
	if err != nil {
		log.Fatalf("gateway: failed to configure model source: %v", err)
	}

	ttl := envDuration("CONFIG_CACHE_TIMEOUT_SECONDS", time.Hour)
	store := configstore.New(source, ttl, logger.WithComponent(logging.ComponentConfigStore))
	if cache := buildSnapshotCache(); cache != nil {
		store = store.WithSnapshotCache(cache)
	}

	tools := toolregistry.New()
	if err := toolregistry.RegisterBuiltins(tools); err != nil {
		log.Fatalf("gateway: failed to register built-in tools: %v", err)
	}
	overridesPath := os.Getenv("TOOL_DESCRIPTIONS_PATH")
	if overridesPath == "" {
		overridesPath = "tools_override.yaml"
	}
	overrides, err := toolregistry.LoadDescriptionOverrides(overridesPath)
	if err != nil {
		log.Fatalf("gateway: failed to load tool description overrides: %v", err)
	}
	tools.ApplyDescriptionOverrides(overrides)

	blobs, err := buildBlobStore(ctx)
	if err != nil {
		log.Fatalf("gateway: failed to configure blob store: %v", err)
	}
	imageFolder := os.Getenv("IMAGE_GENERATION_PATH")

	manager := completion.New(
		store,
		proxyprovider.New(logger.WithComponent(logging.ComponentProxyProvider)),
		completion.NewAgentProvider(tools, logger.WithComponent(logging.ComponentAgent), requestctx.New, unixNow),
		logger.WithComponent(logging.ComponentCompletion),
		requestctx.New,
		unixNow,
	)

	srv := &gatewayServer{completion: manager, store: store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/chat/completions", srv.handleChatCompletions)
	mux.HandleFunc("/api/v1/models", srv.handleModels)
	mux.HandleFunc("/api/v1/health", handleHealth)
	mux.Handle("/api/v1/images/generations", imagegen.NewHandler(nil, blobs, imageFolder, logger.WithComponent("image_generation"), unixNow))
	mux.Handle("/api/v1/image_generation/{path...}", imagegen.NewBlobHandler(blobs, imageFolder))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // long timeout: streaming responses hold the connection open
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("gateway starting", map[string]interface{}{"address": fmt.Sprintf("http://localhost:%s", port)})
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("gateway: server failed: %v", err)
	}
}

func unixNow() int64 { return time.Now().Unix() }

// buildConfigSource selects a Source by CONFIG_PATH's prefix, per spec.md
// 6's "CONFIG_PATH — selects config source by prefix (s3://,
// https://github.com/.../tree/..., a .zip URL, or a filesystem path)".
func buildConfigSource(ctx context.Context) (configstore.Source, error) {
	path := os.Getenv("CONFIG_PATH")
	token := os.Getenv("GITHUB_TOKEN")

	switch {
	case path == "":
		return configstore.NewFileSource("./config/models"), nil
	case strings.HasPrefix(path, "s3://"):
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(path, "s3://"), "/")
		client, err := newS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return configstore.NewS3Source(client, bucket, prefix), nil
	case strings.Contains(path, "github.com") && strings.HasSuffix(path, ".zip"):
		return configstore.NewGitHubArchiveSource(http.DefaultClient, path, token), nil
	case strings.Contains(path, "github.com") && strings.Contains(path, "/tree/"):
		owner, repo, branch, dir, err := parseGitHubTreeURL(path)
		if err != nil {
			return nil, err
		}
		return configstore.NewGitHubTreeSource(http.DefaultClient, owner, repo, branch, dir, token), nil
	default:
		return configstore.NewFileSource(path), nil
	}
}

// parseGitHubTreeURL splits "https://github.com/{owner}/{repo}/tree/{branch}/{dir...}".
func parseGitHubTreeURL(path string) (owner, repo, branch, dir string, err error) {
	trimmed := strings.TrimPrefix(path, "https://github.com/")
	parts := strings.SplitN(trimmed, "/tree/", 2)
	if len(parts) != 2 {
		return "", "", "", "", fmt.Errorf("gateway: malformed GitHub tree URL %q", path)
	}
	ownerRepo := strings.SplitN(parts[0], "/", 2)
	if len(ownerRepo) != 2 {
		return "", "", "", "", fmt.Errorf("gateway: malformed GitHub tree URL %q", path)
	}
	branchDir := strings.SplitN(parts[1], "/", 2)
	branch = branchDir[0]
	if len(branchDir) == 2 {
		dir = branchDir[1]
	}
	return ownerRepo[0], ownerRepo[1], branch, dir, nil
}

func newS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func buildBlobStore(ctx context.Context) (blobstore.Store, error) {
	folder := os.Getenv("IMAGE_GENERATION_PATH")
	publicURL := os.Getenv("IMAGE_GENERATION_URL")
	if strings.HasPrefix(folder, "s3://") {
		client, err := newS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return blobstore.New(ctx, folder, publicURL, client)
	}
	return blobstore.New(ctx, folder, publicURL, nil)
}

// buildSnapshotCache wires an optional Redis-backed cross-process snapshot
// cache when CONFIG_CACHE_REDIS_URL is set (SPEC_FULL.md 4.C's Redis
// expansion); nil when unset, leaving the in-process Store authoritative.
func buildSnapshotCache() *configstore.RedisSnapshotCache {
	redisURL := os.Getenv("CONFIG_CACHE_REDIS_URL")
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("gateway: ignoring malformed CONFIG_CACHE_REDIS_URL: %v", err)
		return nil
	}
	client := redis.NewClient(opts)
	return configstore.NewRedisSnapshotCache(client, "gateway:config-snapshot", time.Hour)
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
