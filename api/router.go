package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the health check and export endpoints. When apiKey is
// non-empty every route except /health requires a matching X-API-Key header.
func NewRouter(runner Runner, apiKey string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if apiKey != "" {
		r.Use(func(c *gin.Context) {
			if c.Request.URL.Path == "/health" {
				c.Next()
				return
			}
			if c.GetHeader("X-API-Key") != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.Next()
		})
	}

	r.Use(requestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	r.Use(cors.New(config))

	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/api/export", ExportHandler(runner))

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if raw != "" {
			attrs = append(attrs, slog.String("query", raw))
		}
		if jobName := c.GetHeader("X-CloudScheduler-JobName"); jobName != "" {
			attrs = append(attrs, slog.String("scheduler_job", jobName))
		}

		if status >= 500 {
			slog.Error("Request processed", attrs...)
		} else {
			slog.Info("Request processed", attrs...)
		}
	}
}
