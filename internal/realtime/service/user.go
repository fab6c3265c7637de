package service

import (
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/migration"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/objpath"
)

const UsersCollection = "users"

// NewUserService governs user documents. Identity and site membership are
// written by the account backend, never by clients.
func NewUserService() *JSONDocService {
	return NewJSONDocService(UsersCollection, migration.MustRegistry(UsersCollection),
		objpath.MustParse("authId", true),
		objpath.MustParse("paratextId", true),
		objpath.MustParse("role", true),
		objpath.MustParse("sites", true),
	)
}
