package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/sttclient/api/types"
	"github.com/killallgit/sttclient/internal/core"
)

// ServerConfig holds listener settings
type ServerConfig struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxHeaderBytes int
}

// Server represents the local control HTTP server
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	limiters   *RateLimiters

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server
func NewServer(cfg ServerConfig, deps *types.Dependencies) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.MaxHeaderBytes <= 0 {
		cfg.MaxHeaderBytes = 1 << 20 // 1 MB
	}

	// Create Gin engine with recovery middleware only
	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		engine:       engine,
		limiters:     NewRateLimiters(),
		dependencies: deps,
		httpServer: &http.Server{
			Addr:           cfg.Address,
			Handler:        engine,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
	}
}

// DependenciesFor exposes the components of app to the handlers
func DependenciesFor(app *core.App, build types.BuildInfo) *types.Dependencies {
	deps := &types.Dependencies{
		DB:           app.DB,
		Registry:     app.Registry,
		Tracker:      app.Tracker,
		Catalog:      app.Catalog,
		Orchestrator: app.Orchestrator,
		Events:       app.Events,
		Journal:      app.Journal,
		ExportDir:    app.Config.Export.Dir,
		Simulated:    app.Backend == nil,
		Build:        build,
	}
	if app.History != nil {
		deps.History = app.History
	}
	return deps
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	s.setupMiddleware()
	return RegisterRoutes(s.engine, s.dependencies, s.limiters)
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	if gin.Mode() != gin.TestMode {
		s.engine.Use(gin.Logger())
	}
	s.engine.Use(CORS())
	s.engine.Use(RequestSizeLimit())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiters.Stop()
	return s.httpServer.Shutdown(ctx)
}
