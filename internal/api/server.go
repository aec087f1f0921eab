// Package api provides the HTTP API server for Lockstep. The server exposes
// the synchronization engine via REST endpoints, allowing CLI tools and
// embedding applications to submit operations, manage sync groups, and query
// scheduler metrics without linking against the engine directly.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/concave-dev/lockstep/internal/api/handlers"
	"github.com/concave-dev/lockstep/internal/config"
	"github.com/concave-dev/lockstep/internal/logging"
	"github.com/concave-dev/lockstep/internal/syncer"
	"github.com/gin-gonic/gin"
)

// Server is the Lockstep API server.
type Server struct {
	engine     *syncer.Engine
	httpServer *http.Server
	bindAddr   string
	bindPort   int
}

// NewServer creates a new Lockstep API server instance.
func NewServer(cfg *Config) *Server {
	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	return &Server{
		engine:   cfg.Engine,
		bindAddr: cfg.BindAddr,
		bindPort: cfg.BindPort,
	}
}

// Start starts the Lockstep API server.
func (s *Server) Start() error {
	logging.Info("Starting HTTP API server on %s:%d", s.bindAddr, s.bindPort)

	router := gin.New()

	// Configure Gin logging only if not already configured by CLI tools
	if !logging.IsConfiguredByCLI() {
		gin.DefaultWriter = logging.NewLevelWriter("INFO", "gin")
		gin.DefaultErrorWriter = logging.NewLevelWriter("ERROR", "gin")
	}

	router.Use(s.loggingMiddleware())
	router.Use(s.corsMiddleware())
	router.Use(gin.Recovery())

	s.setupRoutes(router)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.bindAddr, s.bindPort),
		Handler: router,
		// Timeouts for production
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Test binding first to catch errors immediately
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.httpServer.Addr, err)
	}
	listener.Close() // Close the test listener

	// Start server in goroutine now that we know binding works
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("HTTP server failed: %v", err)
		}
	}()

	logging.Success("HTTP API server started successfully")
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down HTTP API server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// Track server start time for uptime calculation
var startTime = time.Now()

// handleHealth delegates to handlers.HandleHealth
func (s *Server) handleHealth(c *gin.Context) {
	handlers.HandleHealth(s.engine, config.Version, startTime)(c)
}
