package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey = "claims"
	ActorKey  = "actor"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware verifies the Bearer token and stores its claims and the
// acting user. Tokens without a subject cannot act on documents and are refused.
// Project roles are never taken from the token: they are resolved per document.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		verified, err := ver.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(ActorKey, realtime.Actor{UserID: sub})
		c.Next()
	}
}

// ActorFromContext returns the actor stored by AuthMiddleware, or an anonymous
// actor when the request was not authenticated.
func ActorFromContext(c *gin.Context) realtime.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if a, ok := v.(realtime.Actor); ok {
			return a
		}
	}
	return realtime.Actor{}
}
