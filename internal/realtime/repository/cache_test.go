package repository

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newCachedStore(t *testing.T) (*CachedStore, *MemoryStore, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	inner := NewMemoryStore()
	return NewCachedStore(inner, client, "test:snapshot:", 5*time.Second), inner, m
}

func TestCachedStoreReadThrough(t *testing.T) {
	ctx := context.Background()
	c, inner, m := newCachedStore(t)

	_, err := c.Create(ctx, "sf_projects", "p1", map[string]any{"name": "one"})
	require.NoError(t, err)

	got, err := c.Get(ctx, "sf_projects", "p1")
	require.NoError(t, err)
	require.Equal(t, "one", got.Data["name"])
	require.True(t, m.Exists("test:snapshot:sf_projects:p1"))

	// a write behind the cache's back is not visible until invalidated
	require.NoError(t, inner.Put(ctx, "sf_projects", "p1", map[string]any{"name": "two"}))
	stale, err := c.Get(ctx, "sf_projects", "p1")
	require.NoError(t, err)
	require.Equal(t, "one", stale.Data["name"])

	c.Invalidate(ctx, "sf_projects", "p1")
	fresh, err := c.Get(ctx, "sf_projects", "p1")
	require.NoError(t, err)
	require.Equal(t, "two", fresh.Data["name"])
	require.Equal(t, 2, fresh.Version)
}

func TestCachedStoreWriteInvalidates(t *testing.T) {
	ctx := context.Background()
	c, _, m := newCachedStore(t)

	_, err := c.Create(ctx, "sf_projects", "p1", map[string]any{"name": "one"})
	require.NoError(t, err)
	_, err = c.Get(ctx, "sf_projects", "p1")
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "sf_projects", "p1", map[string]any{"name": "two"}))
	require.False(t, m.Exists("test:snapshot:sf_projects:p1"))

	got, err := c.Get(ctx, "sf_projects", "p1")
	require.NoError(t, err)
	require.Equal(t, "two", got.Data["name"])

	require.NoError(t, c.Delete(ctx, "sf_projects", "p1"))
	_, err = c.Get(ctx, "sf_projects", "p1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachedStoreEntriesExpire(t *testing.T) {
	ctx := context.Background()
	c, _, m := newCachedStore(t)

	_, err := c.Create(ctx, "sf_projects", "p1", map[string]any{"name": "one"})
	require.NoError(t, err)
	_, err = c.Get(ctx, "sf_projects", "p1")
	require.NoError(t, err)

	m.FastForward(6 * time.Second)
	require.False(t, m.Exists("test:snapshot:sf_projects:p1"))
}

func TestCachedStoreFallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	c, _, m := newCachedStore(t)

	_, err := c.Create(ctx, "sf_projects", "p1", map[string]any{"name": "one"})
	require.NoError(t, err)
	m.Close()

	got, err := c.Get(ctx, "sf_projects", "p1")
	require.NoError(t, err)
	require.Equal(t, "one", got.Data["name"])
}
