package service

import (
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/json0"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/migration"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/objpath"
)

// DocService is the gatekeeper of one document collection.
type DocService interface {
	Collection() string
	Migrations() *migration.Registry
	// IndexPaths are data fields usable for lookups by external key.
	IndexPaths() []string
	// Validate returns nil when the whole batch may be applied, a *Rejection
	// when policy forbids it. It performs no I/O.
	Validate(snap *realtime.Snapshot, actor realtime.Actor, ops []json0.Op) error
}

// JSONDocService governs a collection of json0 documents: it rejects any
// component addressed at an immutable property.
type JSONDocService struct {
	collection string
	migrations *migration.Registry
	immutable  []objpath.Template
}

func NewJSONDocService(collection string, migrations *migration.Registry, immutable ...objpath.Template) *JSONDocService {
	props := make([]objpath.Template, len(immutable))
	copy(props, immutable)
	return &JSONDocService{collection: collection, migrations: migrations, immutable: props}
}

func (s *JSONDocService) Collection() string              { return s.collection }
func (s *JSONDocService) Migrations() *migration.Registry { return s.migrations }
func (s *JSONDocService) IndexPaths() []string            { return nil }

// ImmutableProps returns the declared immutable templates in declaration order.
func (s *JSONDocService) ImmutableProps() []objpath.Template {
	out := make([]objpath.Template, len(s.immutable))
	copy(out, s.immutable)
	return out
}

// CheckImmutableProps reports false as soon as any component targets an
// immutable property or one of its ancestors. Components with undecodable
// paths count as violations.
func (s *JSONDocService) CheckImmutableProps(ops ...json0.Op) bool {
	_, _, ok := s.firstImmutable(ops)
	return ok
}

// MatchingPathTemplate returns the index of the first template matching path, or -1.
func (s *JSONDocService) MatchingPathTemplate(templates []objpath.Template, path objpath.Path) int {
	return objpath.MatchingTemplate(templates, path)
}

func (s *JSONDocService) firstImmutable(ops []json0.Op) (int, objpath.Path, bool) {
	for i, op := range ops {
		p, err := op.Path()
		if err != nil {
			return i, nil, false
		}
		if objpath.AffectedTemplate(s.immutable, p) != -1 {
			return i, p, false
		}
	}
	return -1, nil, true
}

func (s *JSONDocService) Validate(snap *realtime.Snapshot, actor realtime.Actor, ops []json0.Op) error {
	if _, err := json0.Paths(ops); err != nil {
		return err
	}
	if i, p, ok := s.firstImmutable(ops); !ok {
		tpl := s.immutable[objpath.AffectedTemplate(s.immutable, p)]
		return &Rejection{Collection: s.collection, Reason: ReasonImmutable, OpIndex: i, Path: p, Template: tpl.String()}
	}
	return nil
}
