// Package migration upgrades stored documents through versioned schema
// migrations before the service accepts client traffic.
package migration

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
)

// Transform maps one document's data from Version-1 to Version. It must be
// pure and must tolerate input that is already at (or past) its version,
// because a collection whose run failed midway is migrated again from the
// stored collection version.
type Transform func(data map[string]any) (map[string]any, error)

// Migration is one step of a collection's schema history.
type Migration struct {
	Version   int
	Name      string
	Transform Transform
}

// Registry is the ordered migration table of one collection.
type Registry struct {
	collection string
	migrations []Migration
}

// NewRegistry validates and orders migrations. Versions must be positive,
// unique and contiguous.
func NewRegistry(collection string, migrations ...Migration) (*Registry, error) {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	for i, m := range sorted {
		switch {
		case m.Version < 1:
			return nil, &ConfigurationError{Err: fmt.Errorf("%s: migration %q has version %d", collection, m.Name, m.Version)}
		case m.Transform == nil:
			return nil, &ConfigurationError{Err: fmt.Errorf("%s: migration %d has no transform", collection, m.Version)}
		case i > 0 && m.Version == sorted[i-1].Version:
			return nil, &ConfigurationError{Err: fmt.Errorf("%s: duplicate migration version %d", collection, m.Version)}
		case i > 0 && m.Version != sorted[i-1].Version+1:
			return nil, &ConfigurationError{Err: fmt.Errorf("%s: migration versions jump from %d to %d", collection, sorted[i-1].Version, m.Version)}
		}
	}
	return &Registry{collection: collection, migrations: sorted}, nil
}

// MustRegistry is NewRegistry for tables declared in code.
func MustRegistry(collection string, migrations ...Migration) *Registry {
	r, err := NewRegistry(collection, migrations...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Collection() string {
	if r == nil {
		return ""
	}
	return r.collection
}

// Latest is the highest registered version, 0 when there are none.
func (r *Registry) Latest() int {
	if r == nil || len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].Version
}

// Pending returns the migrations above version from, ascending.
func (r *Registry) Pending(from int) []Migration {
	if r == nil {
		return nil
	}
	i := sort.Search(len(r.migrations), func(i int) bool { return r.migrations[i].Version > from })
	return r.migrations[i:]
}

var errNoData = errors.New("transform returned no data")

// Apply runs every pending migration above from on a copy of data, each
// transform consuming the previous one's output.
func (r *Registry) Apply(data map[string]any, from int) (map[string]any, error) {
	cur := realtime.CloneData(data)
	if cur == nil {
		cur = map[string]any{}
	}
	for _, m := range r.Pending(from) {
		next, err := m.Transform(cur)
		if err == nil && next == nil {
			err = errNoData
		}
		if err != nil {
			return nil, &MigrationError{Collection: r.Collection(), Version: m.Version, Err: err}
		}
		cur = next
	}
	return cur, nil
}
