package service

import (
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/json0"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/migration"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/objpath"
)

// RolePolicy decides whether actor may write role-guarded paths of a document.
// snap may be nil when the host has no snapshot at hand.
type RolePolicy func(snap *realtime.Snapshot, actor realtime.Actor) bool

// UserRolesField maps user ids to their project role inside project documents.
const UserRolesField = "userRoles"

// AdminRolePolicy allows actors holding role on the target document. With a
// snapshot, the document's userRoles map is authoritative; roles the host
// resolved on the actor are only consulted when no snapshot is available.
func AdminRolePolicy(role string) RolePolicy {
	return func(snap *realtime.Snapshot, actor realtime.Actor) bool {
		if role == "" {
			return false
		}
		if snap == nil {
			return actor.HasRole(role)
		}
		if actor.UserID == "" {
			return false
		}
		roles, _ := snap.Data[UserRolesField].(map[string]any)
		r, _ := roles[actor.UserID].(string)
		return r == role
	}
}

// ProjectConfig declares a project collection.
type ProjectConfig struct {
	Collection string
	AdminRole  string
	Migrations *migration.Registry
	// Immutable properties in addition to the JSON service defaults.
	Immutable []objpath.Template
	// AdminOnly paths may only be written by actors the policy accepts.
	AdminOnly  []objpath.Template
	IndexPaths []string
	// Policy defaults to AdminRolePolicy(AdminRole).
	Policy RolePolicy
}

// ProjectService governs project documents: immutable structural fields plus
// sections only the project administrator may change.
type ProjectService struct {
	*JSONDocService
	adminRole  string
	adminOnly  []objpath.Template
	indexPaths []string
	policy     RolePolicy
}

// projectAdminOnly is guarded for every project collection.
var projectAdminOnly = []objpath.Template{
	objpath.MustParse(UserRolesField, true),
}

func NewProjectService(cfg ProjectConfig) *ProjectService {
	policy := cfg.Policy
	if policy == nil {
		policy = AdminRolePolicy(cfg.AdminRole)
	}
	adminOnly := append(append([]objpath.Template{}, projectAdminOnly...), cfg.AdminOnly...)
	return &ProjectService{
		JSONDocService: NewJSONDocService(cfg.Collection, cfg.Migrations, cfg.Immutable...),
		adminRole:      cfg.AdminRole,
		adminOnly:      adminOnly,
		indexPaths:     append([]string{}, cfg.IndexPaths...),
		policy:         policy,
	}
}

func (s *ProjectService) AdminRole() string { return s.adminRole }

func (s *ProjectService) IndexPaths() []string {
	return append([]string{}, s.indexPaths...)
}

// Validate applies the immutability gate first, then the role policy to
// every component addressed at an admin-only path or one of its ancestors.
func (s *ProjectService) Validate(snap *realtime.Snapshot, actor realtime.Actor, ops []json0.Op) error {
	if err := s.JSONDocService.Validate(snap, actor, ops); err != nil {
		return err
	}
	allowed, decided := false, false
	for i, op := range ops {
		p, _ := op.Path()
		if objpath.AffectedTemplate(s.adminOnly, p) == -1 {
			continue
		}
		if !decided {
			allowed, decided = s.policy(snap, actor), true
		}
		if !allowed {
			return &Rejection{Collection: s.Collection(), Reason: ReasonForbidden, OpIndex: i, Path: p}
		}
	}
	return nil
}
