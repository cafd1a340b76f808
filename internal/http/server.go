// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogHTTP "github.com/allisson/filecatalog/internal/catalog/http"
	"github.com/allisson/filecatalog/internal/metrics"
	outboxHTTP "github.com/allisson/filecatalog/internal/outbox/http"
)

// Server represents the API HTTP server.
type Server struct {
	db     *sql.DB
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is assembled separately via
// SetupRouter so tests can mount a minimal set of routes.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// RouterConfig carries the handlers and cross-cutting middleware settings for
// the API router.
type RouterConfig struct {
	CORSEnabled      bool
	CORSAllowOrigins string

	MetricsProvider *metrics.Provider

	FileHandler      *catalogHTTP.FileHandler
	ImportHandler    *catalogHTTP.ImportHandler
	IntegrityHandler *catalogHTTP.IntegrityHandler
	OutboxHandler    *outboxHTTP.OutboxHandler
}

// SetupRouter assembles the API router with middleware and all routes.
func (s *Server) SetupRouter(cfg RouterConfig) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MetricsProvider.MeterProvider(), cfg.MetricsProvider.Namespace()))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	if cfg.FileHandler != nil {
		v1.POST("/files", cfg.FileHandler.CreateHandler)
		v1.GET("/files/:id", cfg.FileHandler.GetHandler)
		v1.PUT("/files/:id", cfg.FileHandler.UpdateHandler)
		v1.DELETE("/files/:id", cfg.FileHandler.DeleteHandler)
	}

	if cfg.ImportHandler != nil {
		v1.POST("/imports", cfg.ImportHandler.ImportHandler)
	}

	if cfg.IntegrityHandler != nil {
		v1.GET("/integrity", cfg.IntegrityHandler.VerifyHandler)
		v1.POST("/integrity/repair", cfg.IntegrityHandler.RepairHandler)
	}

	if cfg.OutboxHandler != nil {
		v1.POST("/outbox/drain", cfg.OutboxHandler.DrainHandler)
		v1.GET("/outbox/dead-letters", cfg.OutboxHandler.ListDeadLettersHandler)
	}

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can take traffic, checking the
// database connection.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}
	status := http.StatusOK
	ready := "ready"

	if s.db == nil {
		components["database"] = "error"
	} else if err := s.db.PingContext(c.Request.Context()); err != nil {
		s.logger.Error("readiness database ping failed", slog.Any("error", err))
		components["database"] = "error"
	}

	if components["database"] != "ok" {
		status = http.StatusServiceUnavailable
		ready = "not_ready"
	}

	c.JSON(status, gin.H{"status": ready, "components": components})
}

// GetHandler returns the http.Handler for testing purposes. Nil until
// SetupRouter has been called.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		return nil
	}
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured, call SetupRouter first")
	}

	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
