package repository

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/metrics"
)

// CachedStore is a read-through Redis cache of snapshots in front of another
// Store. Writes go to the backing store first and then drop the cached entry.
// Cache failures never fail a call; they fall back to the backing store.
type CachedStore struct {
	Store
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedStore wraps inner. Prefix may be empty.
func NewCachedStore(inner Store, client *redis.Client, prefix string, ttl time.Duration) *CachedStore {
	if prefix == "" {
		prefix = "snapshot:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedStore{Store: inner, client: client, prefix: prefix, ttl: ttl}
}

func (c *CachedStore) key(collection, id string) string {
	return c.prefix + collection + ":" + id
}

func (c *CachedStore) Get(ctx context.Context, collection, id string) (*realtime.Snapshot, error) {
	b, err := c.client.Get(ctx, c.key(collection, id)).Bytes()
	switch {
	case err == nil:
		var s realtime.Snapshot
		if uerr := json.Unmarshal(b, &s); uerr == nil {
			metrics.SnapshotCacheLookups.WithLabelValues("hit").Inc()
			return &s, nil
		}
		metrics.SnapshotCacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.SnapshotCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.SnapshotCacheLookups.WithLabelValues("error").Inc()
		logger.Warnf("snapshot cache get %s/%s: %v", collection, id, err)
	}

	s, err := c.Store.Get(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(s); err == nil {
		if err := c.client.Set(ctx, c.key(collection, id), b, c.ttl).Err(); err != nil {
			logger.Warnf("snapshot cache set %s/%s: %v", collection, id, err)
		}
	}
	return s, nil
}

func (c *CachedStore) Put(ctx context.Context, collection, id string, data map[string]any) error {
	if err := c.Store.Put(ctx, collection, id, data); err != nil {
		return err
	}
	c.invalidate(ctx, collection, id)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, collection, id string) error {
	if err := c.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	c.invalidate(ctx, collection, id)
	return nil
}

// Invalidate drops a cached snapshot. Hosts call it when the OT engine
// commits an op the cache did not see.
func (c *CachedStore) Invalidate(ctx context.Context, collection, id string) {
	c.invalidate(ctx, collection, id)
}

func (c *CachedStore) invalidate(ctx context.Context, collection, id string) {
	if err := c.client.Del(ctx, c.key(collection, id)).Err(); err != nil {
		logger.Warnf("snapshot cache del %s/%s: %v", collection, id, err)
	}
}
