package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/repository"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/schemaversion"
)

// keyedArchive keeps the first copy per key, like the MinIO archive.
type keyedArchive struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func newKeyedArchive() *keyedArchive { return &keyedArchive{docs: map[string]map[string]any{}} }

func archiveKey(collection, id string, from, to int) string {
	return fmt.Sprintf("%s/%s:%d-%d", collection, id, from, to)
}

func (a *keyedArchive) Archive(ctx context.Context, collection, id string, from, to int, data map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	k := archiveKey(collection, id, from, to)
	if _, ok := a.docs[k]; !ok {
		a.docs[k] = realtime.CloneData(data)
	}
	return nil
}

func (a *keyedArchive) Restore(ctx context.Context, collection, id string, from, to int) (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.docs[archiveKey(collection, id, from, to)]
	if !ok {
		return nil, ErrNotArchived
	}
	return realtime.CloneData(d), nil
}

func TestRollbackAfterFailedRunRestoresOriginalData(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	versions := schemaversion.NewMemoryRepository()
	seed(t, store, "things", 5)
	archive := newKeyedArchive()

	failing := true
	flaky := Migration{Version: 1, Transform: func(data map[string]any) (map[string]any, error) {
		if failing && data["n"] == 3 {
			return nil, errors.New("unexpected shape")
		}
		return setField("a", true)(data)
	}}
	src := []Source{source{"things", MustRegistry("things", flaky)}}
	r := NewRunner(store, versions, WithArchiver(archive), WithConcurrency(1, 1))

	require.Error(t, r.MigrateIfNecessary(ctx, src))
	failing = false
	require.NoError(t, r.MigrateIfNecessary(ctx, src))

	// the rerun saw migrated data for doc00 but the archive keeps the original
	require.Equal(t, map[string]any{"n": 0}, archive.docs["things/doc00:0-1"])

	// a document created after the migration has no archived copy
	_, err := store.Create(ctx, "things", "late", map[string]any{"a": true})
	require.NoError(t, err)

	n, err := r.Rollback(ctx, archive, "things", 0, 1)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	for i := 0; i < 5; i++ {
		snap, err := store.Get(ctx, "things", fmt.Sprintf("doc%02d", i))
		require.NoError(t, err)
		require.Equal(t, map[string]any{"n": i}, snap.Data)
	}
	late, err := store.Get(ctx, "things", "late")
	require.NoError(t, err)
	require.Equal(t, true, late.Data["a"])
	require.Equal(t, 0, schemaversion.ToMap(mustGetAll(t, versions))["things"])
}

func TestRollbackRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	versions := schemaversion.NewMemoryRepository(schemaversion.Record{Collection: "things", Version: 3})
	r := NewRunner(repository.NewMemoryStore(), versions)
	var ce *ConfigurationError

	_, err := r.Rollback(ctx, nil, "things", 2, 3)
	require.True(t, errors.As(err, &ce))
	_, err = r.Rollback(ctx, newKeyedArchive(), "things", 3, 3)
	require.True(t, errors.As(err, &ce))
	_, err = r.Rollback(ctx, newKeyedArchive(), "things", 0, 1)
	require.True(t, errors.As(err, &ce), "collection is at neither end of the range")
	require.Equal(t, 3, schemaversion.ToMap(mustGetAll(t, versions))["things"])
}
