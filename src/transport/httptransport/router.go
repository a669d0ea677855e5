// Package httptransport builds the Gin engine the HTTP transport serves
// the MCP tool facade over: recovery, CORS, no-cache, and logrus request
// logging middleware, plus a bearer-auth gate in front of the /mcp
// endpoints.
package httptransport

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the engine. authToken, when non-empty, is required as
// "Authorization: Bearer <authToken>" on every /mcp request.
func NewRouter(authToken string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(noCacheMiddleware())
	r.Use(logrusMiddleware())
	r.Use(bearerAuthMiddleware(authToken))

	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, HEAD, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Writer.Header().Set("Pragma", "no-cache")
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}

// bearerAuthMiddleware enforces the Authorization header on /mcp only:
// 401 with WWW-Authenticate: Bearer when the token is missing or wrong.
// An empty authToken disables the check entirely.
func bearerAuthMiddleware(authToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authToken == "" || !strings.HasPrefix(c.Request.URL.Path, "/mcp") {
			c.Next()
			return
		}

		got := c.GetHeader("Authorization")
		if got != "Bearer "+authToken {
			c.Writer.Header().Set("WWW-Authenticate", "Bearer")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func logrusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		msg := fmt.Sprintf("%s %s %d %v", c.Request.Method, path, status, latency)
		if status >= http.StatusInternalServerError {
			logrus.Error(msg)
		} else if status >= http.StatusBadRequest {
			logrus.Warn(msg)
		} else {
			logrus.Info(msg)
		}
	}
}
