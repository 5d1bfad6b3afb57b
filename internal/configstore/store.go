package configstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/imranq2/language-model-gateway/internal/metrics"
)

// Source fetches a fresh set of model definitions from one concrete origin
// (local directory, object store, source-host tree, source-host archive).
type Source interface {
	Load(ctx context.Context) ([]ModelDefinition, error)
}

// SnapshotCache is the optional distributed backing for the snapshot,
// letting a gateway process reuse a snapshot another process already
// loaded (SPEC_FULL.md 4.C's Redis expansion). Refills are single-flight
// only within one process. The in-process Store remains
// authoritative when no cache is configured.
type SnapshotCache interface {
	Load(ctx context.Context) (*Snapshot, bool, error)
	Store(ctx context.Context, snapshot *Snapshot) error
}

// Store is the classic single-flight TTL refill cache: one mutex gating
// refill, plus an atomically-swapped snapshot pointer so readers never
// block (spec.md 4.C, 5).
type Store struct {
	source Source
	ttl    time.Duration
	logger logging.Logger
	cache  SnapshotCache

	mu        sync.Mutex
	snapshot  atomic.Pointer[Snapshot]
	loadedAt  atomic.Int64 // unix nanos
}

// New builds a Store that refills from source once ttl has passed since the
// last successful load. After a failed refill, every Get tries again.
func New(source Source, ttl time.Duration, logger logging.Logger) *Store {
	return &Store{source: source, ttl: ttl, logger: logger}
}

// WithSnapshotCache attaches an optional shared cache.
func (s *Store) WithSnapshotCache(cache SnapshotCache) *Store {
	s.cache = cache
	return s
}

func (s *Store) isFresh() bool {
	loaded := s.loadedAt.Load()
	if loaded == 0 {
		return false
	}
	return time.Since(time.Unix(0, loaded)) < s.ttl
}

// Get returns the cached snapshot if fresh, otherwise performs exactly one
// refill across all concurrently-stale callers (spec.md 4.C's protocol:
// check fresh without a lock, lock, re-check, refill, install, unlock).
// Never returns an error — refill failure falls back to the last good
// snapshot, or an empty one if there has never been a successful load.
func (s *Store) Get(ctx context.Context) *Snapshot {
	if s.isFresh() {
		if snap := s.snapshot.Load(); snap != nil {
			return snap
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isFresh() {
		if snap := s.snapshot.Load(); snap != nil {
			return snap
		}
	}

	if s.cache != nil {
		if cached, ok, err := s.cache.Load(ctx); err == nil && ok {
			s.snapshot.Store(cached)
			s.loadedAt.Store(cached.LoadedAt.UnixNano())
			return cached
		}
	}

	sourceName := fmt.Sprintf("%T", s.source)
	defs, err := s.source.Load(ctx)
	if err != nil {
		metrics.ConfigRefillsTotal.WithLabelValues(sourceName, "error").Inc()
		s.logger.Warn("configuration refill failed, serving last good snapshot", map[string]interface{}{"error": err.Error()})
		if last := s.snapshot.Load(); last != nil {
			return last
		}
		return &Snapshot{}
	}
	metrics.ConfigRefillsTotal.WithLabelValues(sourceName, "success").Inc()

	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	snap := &Snapshot{Definitions: defs, LoadedAt: time.Now()}
	s.snapshot.Store(snap)
	s.loadedAt.Store(snap.LoadedAt.UnixNano())
	if s.cache != nil {
		if err := s.cache.Store(ctx, snap); err != nil {
			s.logger.Warn("failed to write shared configuration cache", map[string]interface{}{"error": err.Error()})
		}
	}
	return snap
}
