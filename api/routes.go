package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/killallgit/sttclient/api/catalog"
	"github.com/killallgit/sttclient/api/connection"
	"github.com/killallgit/sttclient/api/events"
	"github.com/killallgit/sttclient/api/files"
	"github.com/killallgit/sttclient/api/health"
	"github.com/killallgit/sttclient/api/history"
	"github.com/killallgit/sttclient/api/tasks"
	"github.com/killallgit/sttclient/api/types"
	"github.com/killallgit/sttclient/api/uploads"
	"github.com/killallgit/sttclient/api/version"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, limiters *RateLimiters) error {
	if deps == nil || deps.Registry == nil || deps.Tracker == nil || deps.Catalog == nil ||
		deps.Orchestrator == nil || deps.Journal == nil {
		return fmt.Errorf("api dependencies are incomplete")
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	// API v1 routes
	v1 := engine.Group("/api/v1")

	// Polled by the UI, so the limits are generous
	readLimit := limiters.PerClient(50, 100)
	// Actions start uploads or downloads
	actionLimit := limiters.PerClient(10, 20)

	filesGroup := v1.Group("/files")
	filesGroup.Use(actionLimit)
	files.RegisterRoutes(filesGroup, deps)

	tasksGroup := v1.Group("/tasks")
	tasksGroup.Use(actionLimit)
	tasks.RegisterRoutes(tasksGroup, deps)

	modelsGroup := v1.Group("/models")
	modelsGroup.Use(actionLimit)
	catalog.RegisterRoutes(modelsGroup, deps)

	uploadsGroup := v1.Group("/uploads")
	uploadsGroup.Use(readLimit)
	uploads.RegisterRoutes(uploadsGroup, deps)

	connectionGroup := v1.Group("/connection")
	connectionGroup.Use(readLimit)
	connection.RegisterRoutes(connectionGroup, deps)

	eventsGroup := v1.Group("/events")
	eventsGroup.Use(readLimit)
	events.RegisterRoutes(eventsGroup, deps)

	historyGroup := v1.Group("/history")
	historyGroup.Use(readLimit)
	history.RegisterRoutes(historyGroup, deps)

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(404, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
