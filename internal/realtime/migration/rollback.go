package migration

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/repository"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/logger"
)

// Restorer reads back data an Archiver stored.
type Restorer interface {
	Restore(ctx context.Context, collection, id string, from, to int) (map[string]any, error)
}

// Rollback undoes the migration of collection from one version to another
// using archived copies. The stored version is lowered to from before any
// document is touched, so an interrupted rollback leaves the collection to be
// migrated again on the next start. Documents without an archived copy are
// left as they are. It returns the number of restored documents.
func (r *Runner) Rollback(ctx context.Context, restorer Restorer, collection string, from, to int) (int, error) {
	if restorer == nil {
		return 0, &ConfigurationError{Err: errors.New("rollback needs an archive")}
	}
	if from < 0 || to <= from {
		return 0, &ConfigurationError{Err: fmt.Errorf("invalid rollback range v%d-v%d", from, to)}
	}
	records, err := r.versions.GetAll(ctx)
	if err != nil {
		return 0, &ConfigurationError{Err: err}
	}
	stored := 0
	for _, rec := range records {
		if rec.Collection == collection {
			stored = rec.Version
		}
	}
	if stored != from && stored != to {
		return 0, &ConfigurationError{Err: fmt.Errorf("%s is at version %d, not %d or %d", collection, stored, from, to)}
	}
	if err := r.versions.Set(ctx, collection, from); err != nil {
		return 0, &MigrationError{Collection: collection, Version: from, Err: err}
	}

	ids, err := r.store.ListIDs(ctx, collection)
	if err != nil {
		return 0, &MigrationError{Collection: collection, Version: from, Err: fmt.Errorf("list documents: %w", err)}
	}
	restored := make([]bool, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.docConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			data, err := restorer.Restore(gctx, collection, id, from, to)
			if errors.Is(err, ErrNotArchived) {
				return nil
			}
			if err != nil {
				return &MigrationError{Collection: collection, DocID: id, Version: from, Err: err}
			}
			err = r.store.Put(gctx, collection, id, data)
			if errors.Is(err, repository.ErrNotFound) {
				// deleted since the scan
				return nil
			}
			if err != nil {
				return &MigrationError{Collection: collection, DocID: id, Version: from, Err: err}
			}
			restored[i] = true
			return nil
		})
	}
	err = g.Wait()
	n := 0
	for _, ok := range restored {
		if ok {
			n++
		}
	}
	if err != nil {
		return n, err
	}
	logger.Infof("rolled back %d documents of %s to version %d", n, collection, from)
	return n, nil
}
