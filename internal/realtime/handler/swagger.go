package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the OpenAPI description of the realtime API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRoutes) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})
	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>gogotex-realtime — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "gogotex-realtime", "version": "v0.1.0" },
  "paths": {
    "/api/v1/realtime/schema-versions": {
      "get": { "summary": "Stored schema version per collection", "responses": { "200": { "description": "records" }, "401": { "description": "missing or invalid token" }, "503": { "description": "migrations pending" } } }
    },
    "/api/v1/realtime/docs/{collection}": {
      "get": {
        "summary": "Find document ids by an indexed path",
        "parameters": [
          {"name":"collection","in":"path","required":true,"schema":{"type":"string"}},
          {"name":"index","in":"query","required":true,"schema":{"type":"string"}},
          {"name":"value","in":"query","schema":{"type":"string"}}
        ],
        "responses": { "200": { "description": "ids" }, "400": { "description": "path is not indexed" }, "401": { "description": "missing or invalid token" }, "404": { "description": "unknown collection" } }
      }
    },
    "/api/v1/realtime/docs/{collection}/{id}": {
      "get": { "summary": "Current snapshot", "responses": { "200": { "description": "snapshot" }, "401": { "description": "missing or invalid token" }, "404": { "description": "not found" } } }
    },
    "/api/v1/realtime/docs/{collection}/{id}/validate": {
      "post": {
        "summary": "Validate a json0 op batch against the document's rules",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"op":{"oneOf":[{"type":"object"},{"type":"array"}]}}}}}},
        "responses": { "200": { "description": "accepted" }, "400": { "description": "malformed op" }, "401": { "description": "missing or invalid token" }, "403": { "description": "rejected: immutable or forbidden" }, "429": { "description": "rate limited" } }
      }
    },
    "/api/v1/realtime/docs/{collection}/{id}/committed": {
      "post": { "summary": "Notify that an op was committed; evicts the cached snapshot", "responses": { "204": { "description": "evicted" }, "401": { "description": "missing or invalid token" }, "404": { "description": "unknown collection" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "migrations pending" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
