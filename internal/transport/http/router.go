// Package httptransport exposes the conversion service over HTTP.
package httptransport

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Options configures the HTTP router builder.
type Options struct {
	Logger         *slog.Logger
	Service        *Service
	MaxUploadBytes int64
	Debug          bool
}

// Build constructs a gin engine with recovery, request ids, logging and
// permissive CORS, and mounts the API routes.
func Build(opts Options) *gin.Engine {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	if opts.Logger != nil {
		engine.Use(loggingMiddleware(opts.Logger))
	}

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if opts.MaxUploadBytes > 0 {
		engine.MaxMultipartMemory = opts.MaxUploadBytes
	}

	api := engine.Group("/api")
	api.GET("/health", opts.Service.Health)
	api.POST("/convert", opts.Service.Convert)

	return engine
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		)
	}
}
