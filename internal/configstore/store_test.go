package configstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imranq2/language-model-gateway/internal/logging"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls atomic.Int32
	defs  []ModelDefinition
}

func (c *countingSource) Load(ctx context.Context) ([]ModelDefinition, error) {
	c.calls.Add(1)
	return c.defs, nil
}

type nopBackend struct{}

func (nopBackend) Log(level, component, category, requestID, message string, fields map[string]interface{}) {
}

func TestStoreSingleFlightUnderConcurrentStaleReads(t *testing.T) {
	source := &countingSource{defs: []ModelDefinition{{Name: "b"}, {Name: "a"}}}
	store := New(source, time.Hour, logging.New(context.Background(), nopBackend{}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Get(context.Background())
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), source.calls.Load())
}

func TestStoreGetSortsByName(t *testing.T) {
	source := &countingSource{defs: []ModelDefinition{{Name: "zeta"}, {Name: "alpha"}}}
	store := New(source, time.Hour, logging.New(context.Background(), nopBackend{}))

	snap := store.Get(context.Background())
	require.Equal(t, []string{"alpha", "zeta"}, []string{snap.Definitions[0].Name, snap.Definitions[1].Name})
}

func TestStoreServesStaleOnRefillFailure(t *testing.T) {
	good := &countingSource{defs: []ModelDefinition{{Name: "a"}}}
	store := New(good, time.Millisecond, logging.New(context.Background(), nopBackend{}))
	first := store.Get(context.Background())
	require.Len(t, first.Definitions, 1)

	time.Sleep(5 * time.Millisecond)
	failing := &failingSource{}
	store.source = failing
	second := store.Get(context.Background())
	require.Equal(t, first, second)
}

type failingSource struct{}

func (failingSource) Load(ctx context.Context) ([]ModelDefinition, error) {
	return nil, errors.New("source unavailable")
}

func TestSnapshotFindSkipsDisabledAndIsCaseInsensitive(t *testing.T) {
	snap := Snapshot{Definitions: []ModelDefinition{
		{Name: "General Purpose", Disabled: false},
		{Name: "Retired Model", Disabled: true},
	}}

	def, ok := snap.Find("general purpose")
	require.True(t, ok)
	require.Equal(t, "General Purpose", def.Name)

	_, ok = snap.Find("retired model")
	require.False(t, ok)
}

func TestStoreGetSortIsStableForEqualNames(t *testing.T) {
	source := &countingSource{defs: []ModelDefinition{
		{Name: "dup", Owner: "first"},
		{Name: "dup", Owner: "second"},
	}}
	store := New(source, time.Hour, logging.New(context.Background(), nopBackend{}))

	snap := store.Get(context.Background())

	require.Equal(t, "first", snap.Definitions[0].Owner)
	require.Equal(t, "second", snap.Definitions[1].Owner)
}

func TestModelDefinitionEffectiveAgentsFallsBackToTools(t *testing.T) {
	def := ModelDefinition{Tools: []ToolRef{{Name: "current_time"}}}
	require.Equal(t, []ToolRef{{Name: "current_time"}}, def.EffectiveAgents())

	def.Agents = []ToolRef{{Name: "calculator"}}
	require.Equal(t, []ToolRef{{Name: "calculator"}}, def.EffectiveAgents())
}
