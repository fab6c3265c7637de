package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
)

// claimsToken implements Token
type claimsToken map[string]interface{}

func (t claimsToken) Claims(v interface{}) error {
	if mm, ok := v.(*map[string]interface{}); ok {
		*mm = t
		return nil
	}
	return fmt.Errorf("unsupported claims type")
}

// tokenTable implements Verifier from a fixed set of raw tokens.
type tokenTable map[string]claimsToken

func (tt tokenTable) Verify(ctx context.Context, raw string) (Token, error) {
	if tok, ok := tt[raw]; ok {
		return tok, nil
	}
	return nil, fmt.Errorf("invalid token")
}

var tokens = tokenTable{
	"translator": {"sub": "user01", "realm_access": map[string]interface{}{"roles": []interface{}{"pt_administrator"}}},
	"no-subject": {"email": "svc@example.com"},
}

func serveAuth(t *testing.T, header string) (*httptest.ResponseRecorder, realtime.Actor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var actor realtime.Actor
	g := gin.New()
	g.GET("/docs/:collection/:id", AuthMiddleware(tokens), func(c *gin.Context) {
		actor = ActorFromContext(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/docs/sf_projects/project01", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw, actor
}

func TestAuthMiddlewareRejects(t *testing.T) {
	for name, header := range map[string]string{
		"no header":     "",
		"not bearer":    "Basic dXNlcjpwdw==",
		"empty bearer":  "Bearer  ",
		"unknown token": "Bearer forged",
		"no subject":    "Bearer no-subject",
	} {
		rw, actor := serveAuth(t, header)
		require.Equal(t, http.StatusUnauthorized, rw.Code, name)
		require.Empty(t, actor.UserID, name)
	}
}

func TestAuthMiddlewareSetsActorWithoutTokenRoles(t *testing.T) {
	rw, actor := serveAuth(t, "Bearer translator")
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, realtime.Actor{UserID: "user01"}, actor)
}

func TestActorFromContextAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Equal(t, realtime.Actor{}, ActorFromContext(c))
	c.Set(ActorKey, "not an actor")
	require.Equal(t, realtime.Actor{}, ActorFromContext(c))
}
