package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/json0"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/repository"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/service"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/logger"
	"github.com/gogotex/gogotex/backend/go-realtime/pkg/middleware"
)

// RegisterRoutes mounts the realtime API on rg. Every route requires auth;
// validateMW (rate limiting) run before the validate handler only.
func RegisterRoutes(rg *gin.RouterGroup, srv *service.Server, auth gin.HandlerFunc, validateMW ...gin.HandlerFunc) {
	if auth == nil {
		panic("handler: auth middleware is required")
	}
	rg.Use(auth, requireReady(srv))

	rg.GET("/schema-versions", func(c *gin.Context) {
		recs, err := srv.SchemaVersions(c.Request.Context())
		if err != nil {
			logger.Errorf("read schema versions: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "schema versions unavailable"})
			return
		}
		c.JSON(http.StatusOK, recs)
	})

	rg.GET("/docs/:collection", func(c *gin.Context) {
		index, value := c.Query("index"), c.Query("value")
		if index == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "index query parameter is required"})
			return
		}
		ids, err := srv.Lookup(c.Request.Context(), c.Param("collection"), index, value)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ids": ids})
	})

	rg.GET("/docs/:collection/:id", func(c *gin.Context) {
		snap, err := srv.Snapshot(c.Request.Context(), c.Param("collection"), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	handlers := append(append([]gin.HandlerFunc{}, validateMW...), validate(srv))
	rg.POST("/docs/:collection/:id/validate", handlers...)

	// called by the OT engine after it committed an op to the document
	rg.POST("/docs/:collection/:id/committed", func(c *gin.Context) {
		if err := srv.Committed(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func requireReady(srv *service.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !srv.Ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": service.ErrNotReady.Error()})
			return
		}
		c.Next()
	}
}

func validate(srv *service.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Op json.RawMessage `json:"op"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ops, err := json0.Decode(req.Op)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		collection, id := c.Param("collection"), c.Param("id")
		snap, err := srv.Snapshot(c.Request.Context(), collection, id)
		if err != nil {
			writeError(c, err)
			return
		}
		actor := middleware.ActorFromContext(c)
		if err := srv.ValidateMutation(collection, actor, snap, ops); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"accepted": true, "v": snap.Version})
	}
}

func writeError(c *gin.Context, err error) {
	var rej *service.Rejection
	switch {
	case errors.As(err, &rej):
		c.JSON(http.StatusForbidden, gin.H{
			"accepted": false,
			"reason":   rej.Reason,
			"opIndex":  rej.OpIndex,
			"path":     rej.Path,
			"error":    rej.Error(),
		})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrUnknownCollection):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrNotIndexed), errors.Is(err, json0.ErrInvalidOp):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
