package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/json0"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/migration"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/repository"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/schemaversion"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/metrics"
)

// Server owns the document services of the process. It is built once at
// startup and shared by the migration phase and the request handlers.
type Server struct {
	store    repository.Store
	versions schemaversion.Repository
	runner   *migration.Runner
	services map[string]DocService
	order    []DocService
	ready    atomic.Bool
}

// NewServer registers services. Each collection may be registered once.
func NewServer(store repository.Store, versions schemaversion.Repository, services []DocService, opts ...migration.Option) (*Server, error) {
	s := &Server{
		store:    store,
		versions: versions,
		runner:   migration.NewRunner(store, versions, opts...),
		services: make(map[string]DocService, len(services)),
	}
	for _, svc := range services {
		c := svc.Collection()
		if c == "" {
			return nil, &migration.ConfigurationError{Err: errors.New("document service without collection")}
		}
		if _, dup := s.services[c]; dup {
			return nil, &migration.ConfigurationError{Err: fmt.Errorf("collection %s registered twice", c)}
		}
		if reg := svc.Migrations(); reg != nil && reg.Collection() != c {
			return nil, &migration.ConfigurationError{Err: fmt.Errorf("collection %s uses migrations of %s", c, reg.Collection())}
		}
		s.services[c] = svc
		s.order = append(s.order, svc)
	}
	return s, nil
}

// Service returns the service registered for collection.
func (s *Server) Service(collection string) (DocService, bool) {
	svc, ok := s.services[collection]
	return svc, ok
}

// Collections lists registered collections in registration order.
func (s *Server) Collections() []string {
	out := make([]string, len(s.order))
	for i, svc := range s.order {
		out[i] = svc.Collection()
	}
	return out
}

// Ready reports whether MigrateIfNecessary completed successfully.
func (s *Server) Ready() bool { return s.ready.Load() }

// MigrateIfNecessary ensures index paths and runs pending migrations. It must
// return nil before mutations are validated.
func (s *Server) MigrateIfNecessary(ctx context.Context) error {
	for _, svc := range s.order {
		for _, p := range svc.IndexPaths() {
			if err := s.store.EnsureIndex(ctx, svc.Collection(), p); err != nil {
				return &migration.ConfigurationError{Err: err}
			}
		}
	}
	sources := make([]migration.Source, len(s.order))
	for i, svc := range s.order {
		sources[i] = svc
	}
	if err := s.runner.MigrateIfNecessary(ctx, sources); err != nil {
		return err
	}
	s.ready.Store(true)
	return nil
}

// ValidateMutation gates one op batch for collection. snap is the document's
// current snapshot as known to the host; it is only read.
func (s *Server) ValidateMutation(collection string, actor realtime.Actor, snap *realtime.Snapshot, ops []json0.Op) error {
	if !s.Ready() {
		return ErrNotReady
	}
	svc, ok := s.services[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	err := svc.Validate(snap, actor, ops)
	var rej *Rejection
	switch {
	case err == nil:
		metrics.MutationsValidated.WithLabelValues(collection, "accepted").Inc()
	case errors.As(err, &rej):
		metrics.MutationsValidated.WithLabelValues(collection, string(rej.Reason)).Inc()
		logger.Debugf("rejected mutation by %q: %v", actor.UserID, rej)
	}
	return err
}

// Snapshot fetches a document through the store.
func (s *Server) Snapshot(ctx context.Context, collection, id string) (*realtime.Snapshot, error) {
	if _, ok := s.services[collection]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return s.store.Get(ctx, collection, id)
}

// Lookup finds documents by an index path declared by the collection's service.
func (s *Server) Lookup(ctx context.Context, collection, path string, value any) ([]string, error) {
	svc, ok := s.services[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	indexed := false
	for _, p := range svc.IndexPaths() {
		if p == path {
			indexed = true
			break
		}
	}
	if !indexed {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotIndexed, collection, path)
	}
	return s.store.FindIDs(ctx, collection, path, value)
}

// snapshotCache is implemented by stores that keep snapshots between reads.
type snapshotCache interface {
	Invalidate(ctx context.Context, collection, id string)
}

// Committed tells the server that the OT engine committed an op to a document,
// so cached snapshots of it are stale. Role checks read userRoles from the
// snapshot and must not see a superseded one.
func (s *Server) Committed(ctx context.Context, collection, id string) error {
	if _, ok := s.services[collection]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if c, ok := s.store.(snapshotCache); ok {
		c.Invalidate(ctx, collection, id)
	}
	return nil
}

// Rollback restores collection to the data archived before its migration
// from one version to another. Serving stops until migrations run again.
func (s *Server) Rollback(ctx context.Context, restorer migration.Restorer, collection string, from, to int) (int, error) {
	if _, ok := s.services[collection]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	s.ready.Store(false)
	return s.runner.Rollback(ctx, restorer, collection, from, to)
}

// SchemaVersions returns the stored schema version of every collection.
func (s *Server) SchemaVersions(ctx context.Context) ([]schemaversion.Record, error) {
	return s.versions.GetAll(ctx)
}
