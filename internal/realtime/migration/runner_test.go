package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/repository"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/schemaversion"
)

type source struct {
	collection string
	reg        *Registry
}

func (s source) Collection() string    { return s.collection }
func (s source) Migrations() *Registry { return s.reg }

type brokenVersions struct{}

func (brokenVersions) GetAll(context.Context) ([]schemaversion.Record, error) {
	return nil, errors.New("connection refused")
}
func (brokenVersions) Set(context.Context, string, int) error { return nil }

type recordingArchiver struct {
	mu    sync.Mutex
	calls []string
}

func (a *recordingArchiver) Archive(ctx context.Context, collection, id string, from, to int, data map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, fmt.Sprintf("%s/%s:%d-%d", collection, id, from, to))
	return nil
}

func seed(t *testing.T, store repository.Store, collection string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.Create(context.Background(), collection, fmt.Sprintf("doc%02d", i), map[string]any{"n": i})
		require.NoError(t, err)
	}
}

func TestRunnerMigratesAndAdvancesVersion(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	versions := schemaversion.NewMemoryRepository()
	seed(t, store, "things", 20)

	reg := MustRegistry("things",
		Migration{Version: 1, Transform: setField("a", true)},
		Migration{Version: 2, Transform: setField("b", true)},
	)
	archiver := &recordingArchiver{}
	r := NewRunner(store, versions, WithArchiver(archiver), WithConcurrency(3, 1))
	require.NoError(t, r.MigrateIfNecessary(ctx, []Source{source{"things", reg}}))

	for i := 0; i < 20; i++ {
		snap, err := store.Get(ctx, "things", fmt.Sprintf("doc%02d", i))
		require.NoError(t, err)
		require.Equal(t, true, snap.Data["a"])
		require.Equal(t, true, snap.Data["b"])
		require.Equal(t, 2, snap.Version, "one write per document")
	}
	all, err := versions.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []schemaversion.Record{{Collection: "things", Version: 2}}, all)
	require.Len(t, archiver.calls, 20)
	require.Contains(t, archiver.calls, "things/doc00:0-2")
}

func TestRunnerSkipsUpToDateCollections(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	versions := schemaversion.NewMemoryRepository(schemaversion.Record{Collection: "things", Version: 5})
	seed(t, store, "things", 2)

	reg := MustRegistry("things", Migration{Version: 1, Transform: setField("a", true)})
	require.NoError(t, NewRunner(store, versions).MigrateIfNecessary(ctx, []Source{source{"things", reg}, source{"empty", nil}}))

	snap, err := store.Get(ctx, "things", "doc00")
	require.NoError(t, err)
	require.Equal(t, 1, snap.Version)
	_, touched := snap.Data["a"]
	require.False(t, touched)

	// stored version never decreases
	all, err := versions.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, schemaversion.ToMap(all)["things"])
	_, hasEmpty := schemaversion.ToMap(all)["empty"]
	require.False(t, hasEmpty)
}

func TestRunnerFailureKeepsVersionAndOtherCollectionsContinue(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	versions := schemaversion.NewMemoryRepository()
	seed(t, store, "things", 5)
	seed(t, store, "others", 3)

	failing := true
	flaky := Migration{Version: 1, Transform: func(data map[string]any) (map[string]any, error) {
		if failing && data["n"] == 3 {
			return nil, errors.New("unexpected shape")
		}
		return setField("a", true)(data)
	}}
	sources := []Source{
		source{"things", MustRegistry("things", flaky)},
		source{"others", MustRegistry("others", Migration{Version: 1, Transform: setField("a", true)})},
	}

	err := NewRunner(store, versions, WithConcurrency(1, 2)).MigrateIfNecessary(ctx, sources)
	require.Error(t, err)
	var me *MigrationError
	require.True(t, errors.As(err, &me))
	require.Equal(t, "things", me.Collection)
	require.Equal(t, "doc03", me.DocID)
	require.Equal(t, 1, me.Version)

	m := schemaversion.ToMap(mustGetAll(t, versions))
	require.Equal(t, 0, m["things"], "failed collection must not advance")
	require.Equal(t, 1, m["others"])

	// a rerun re-applies the migration to already migrated documents
	failing = false
	require.NoError(t, NewRunner(store, versions).MigrateIfNecessary(ctx, sources))
	require.Equal(t, 1, schemaversion.ToMap(mustGetAll(t, versions))["things"])
	for i := 0; i < 5; i++ {
		snap, err := store.Get(ctx, "things", fmt.Sprintf("doc%02d", i))
		require.NoError(t, err)
		require.Equal(t, true, snap.Data["a"])
	}
}

func TestRunnerUnreadableVersionsIsConfigurationError(t *testing.T) {
	err := NewRunner(repository.NewMemoryStore(), brokenVersions{}).MigrateIfNecessary(context.Background(), nil)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
}

func TestRunnerStopsOnCancellation(t *testing.T) {
	store := repository.NewMemoryStore()
	versions := schemaversion.NewMemoryRepository()
	seed(t, store, "things", 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg := MustRegistry("things", Migration{Version: 1, Transform: setField("a", true)})
	err := NewRunner(store, versions).MigrateIfNecessary(ctx, []Source{source{"things", reg}})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, schemaversion.ToMap(mustGetAll(t, versions))["things"])
	for i := 0; i < 4; i++ {
		snap, err := store.Get(context.Background(), "things", fmt.Sprintf("doc%02d", i))
		require.NoError(t, err)
		require.NotContains(t, snap.Data, "a")
	}
}

func mustGetAll(t *testing.T, r schemaversion.Repository) []schemaversion.Record {
	t.Helper()
	all, err := r.GetAll(context.Background())
	require.NoError(t, err)
	return all
}
