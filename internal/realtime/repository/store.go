package repository

import (
	"context"
	"errors"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrExists   = errors.New("document already exists")
)

// Store is the document store the governance layer consumes. Documents are
// addressed by (collection, id); every successful write advances Version.
type Store interface {
	Get(ctx context.Context, collection, id string) (*realtime.Snapshot, error)
	// Create stores a new document. An empty id is replaced by a generated one.
	Create(ctx context.Context, collection, id string, data map[string]any) (string, error)
	Put(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	// ListIDs returns every document id in the collection, sorted.
	ListIDs(ctx context.Context, collection string) ([]string, error)
	// FindIDs returns ids of documents whose data field at path equals value.
	FindIDs(ctx context.Context, collection, path string, value any) ([]string, error)
	EnsureIndex(ctx context.Context, collection, path string) error
}
