package repository

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
)

// MemoryStore is an in-memory Store used in development mode and unit tests.
// Reads and writes copy document data so callers never share maps with it.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*realtime.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]*realtime.Snapshot)}
}

func (m *MemoryStore) Create(ctx context.Context, collection, id string, data map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]*realtime.Snapshot)
		m.collections[collection] = col
	}
	if _, exists := col[id]; exists {
		return "", ErrExists
	}
	col[id] = &realtime.Snapshot{
		ID:         id,
		Collection: collection,
		Type:       realtime.Json0Type,
		Version:    1,
		Data:       realtime.CloneData(data),
		UpdatedAt:  time.Now().UTC(),
	}
	return id, nil
}

func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*realtime.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	cp.Data = realtime.CloneData(s.Data)
	return &cp, nil
}

func (m *MemoryStore) Put(ctx context.Context, collection, id string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	s.Data = realtime.CloneData(data)
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *MemoryStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.collections[collection]))
	for id := range m.collections[collection] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) FindIDs(ctx context.Context, collection, path string, value any) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for id, s := range m.collections[collection] {
		if v, ok := realtime.FieldAt(s.Data, path); ok && reflect.DeepEqual(v, value) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// EnsureIndex is a no-op: lookups scan the collection.
func (m *MemoryStore) EnsureIndex(ctx context.Context, collection, path string) error {
	return nil
}
