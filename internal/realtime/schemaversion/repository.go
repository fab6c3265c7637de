// Package schemaversion persists, per document collection, the schema version
// every stored document in that collection has been migrated to.
package schemaversion

import (
	"context"
	"sort"
	"sync"
)

// Record is the schema version of one collection.
type Record struct {
	Collection string `json:"collection" bson:"_id"`
	Version    int    `json:"version" bson:"version"`
}

// Repository is read once at startup and written after a collection finishes migrating.
type Repository interface {
	GetAll(ctx context.Context) ([]Record, error)
	// Set upserts the version of collection.
	Set(ctx context.Context, collection string, version int) error
}

// MemoryRepository keeps versions in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	versions map[string]int
}

func NewMemoryRepository(initial ...Record) *MemoryRepository {
	r := &MemoryRepository{versions: make(map[string]int)}
	for _, rec := range initial {
		r.versions[rec.Collection] = rec.Version
	}
	return r
}

func (r *MemoryRepository) GetAll(ctx context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.versions))
	for c, v := range r.versions {
		out = append(out, Record{Collection: c, Version: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out, nil
}

func (r *MemoryRepository) Set(ctx context.Context, collection string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[collection] = version
	return nil
}

// ToMap indexes records by collection.
func ToMap(records []Record) map[string]int {
	out := make(map[string]int, len(records))
	for _, r := range records {
		out[r.Collection] = r.Version
	}
	return out
}
