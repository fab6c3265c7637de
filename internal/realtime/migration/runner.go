package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/repository"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/schemaversion"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/metrics"
)

// Source is anything owning a collection's migration table.
type Source interface {
	Collection() string
	Migrations() *Registry
}

// Archiver keeps a copy of a document's data before a migration rewrites it.
// A rerun after a failed migration archives again under the same versions;
// implementations must keep the first copy.
type Archiver interface {
	Archive(ctx context.Context, collection, id string, from, to int, data map[string]any) error
}

const (
	DefaultDocConcurrency        = 8
	DefaultCollectionConcurrency = 2
)

// Runner brings every collection up to its latest schema version.
type Runner struct {
	store    repository.Store
	versions schemaversion.Repository
	archiver Archiver

	docConcurrency        int
	collectionConcurrency int
}

type Option func(*Runner)

// WithArchiver archives pre-migration data of every rewritten document.
func WithArchiver(a Archiver) Option { return func(r *Runner) { r.archiver = a } }

// WithConcurrency bounds parallel document rewrites per collection and
// parallel collections. Values below 1 keep the defaults.
func WithConcurrency(docs, collections int) Option {
	return func(r *Runner) {
		if docs > 0 {
			r.docConcurrency = docs
		}
		if collections > 0 {
			r.collectionConcurrency = collections
		}
	}
}

func NewRunner(store repository.Store, versions schemaversion.Repository, opts ...Option) *Runner {
	r := &Runner{
		store:                 store,
		versions:              versions,
		docConcurrency:        DefaultDocConcurrency,
		collectionConcurrency: DefaultCollectionConcurrency,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// MigrateIfNecessary migrates every collection whose stored version is behind
// its latest migration. Collections are independent: one failing does not stop
// the others, but every failure is returned. A collection's stored version is
// only advanced after all of its documents were rewritten.
func (r *Runner) MigrateIfNecessary(ctx context.Context, sources []Source) error {
	records, err := r.versions.GetAll(ctx)
	if err != nil {
		return &ConfigurationError{Err: err}
	}
	stored := schemaversion.ToMap(records)

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(r.collectionConcurrency)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			// collections not yet started are skipped once ctx is done
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.migrateCollection(ctx, src, stored[src.Collection()]); err != nil {
				metrics.MigrationFailures.WithLabelValues(src.Collection()).Inc()
				logger.Errorf("migration of %s failed: %v", src.Collection(), err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *Runner) migrateCollection(ctx context.Context, src Source, storedVersion int) error {
	collection := src.Collection()
	reg := src.Migrations()
	target := reg.Latest()
	if storedVersion >= target {
		metrics.SchemaVersion.WithLabelValues(collection).Set(float64(storedVersion))
		logger.Debugf("%s is at schema version %d, nothing to migrate", collection, storedVersion)
		return nil
	}

	start := time.Now()
	ids, err := r.store.ListIDs(ctx, collection)
	if err != nil {
		return &MigrationError{Collection: collection, Version: target, Err: fmt.Errorf("list documents: %w", err)}
	}
	logger.Infof("migrating %d documents in %s from version %d to %d", len(ids), collection, storedVersion, target)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.docConcurrency)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		id := id
		g.Go(func() error {
			return r.migrateDocument(gctx, reg, collection, id, storedVersion, target)
		})
	}
	if err := g.Wait(); err != nil {
		var me *MigrationError
		if !errors.As(err, &me) {
			err = &MigrationError{Collection: collection, Version: target, Err: err}
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return &MigrationError{Collection: collection, Version: target, Err: err}
	}

	if err := r.versions.Set(ctx, collection, target); err != nil {
		return &MigrationError{Collection: collection, Version: target, Err: err}
	}
	metrics.SchemaVersion.WithLabelValues(collection).Set(float64(target))
	logger.Infof("migrated %s to version %d in %s", collection, target, time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *Runner) migrateDocument(ctx context.Context, reg *Registry, collection, id string, from, to int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap, err := r.store.Get(ctx, collection, id)
	if errors.Is(err, repository.ErrNotFound) {
		// deleted since the scan
		return nil
	}
	if err != nil {
		return &MigrationError{Collection: collection, DocID: id, Version: to, Err: err}
	}
	data, err := reg.Apply(snap.Data, from)
	if err != nil {
		var me *MigrationError
		if errors.As(err, &me) {
			me.DocID = id
			return me
		}
		return &MigrationError{Collection: collection, DocID: id, Version: to, Err: err}
	}
	if r.archiver != nil {
		if err := r.archiver.Archive(ctx, collection, id, from, to, snap.Data); err != nil {
			return &MigrationError{Collection: collection, DocID: id, Version: to, Err: fmt.Errorf("archive: %w", err)}
		}
	}
	if err := r.store.Put(ctx, collection, id, data); err != nil {
		return &MigrationError{Collection: collection, DocID: id, Version: to, Err: err}
	}
	metrics.DocumentsMigrated.WithLabelValues(collection).Inc()
	return nil
}
