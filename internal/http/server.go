// Package http provides the API server: route registration, health and
// readiness probes, and graceful shutdown.
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

	"github.com/JSONbored/claudepro-directory-sub000/internal/metrics"
	queueHTTP "github.com/JSONbored/claudepro-directory-sub000/internal/queue/http"
	"github.com/JSONbored/claudepro-directory-sub000/internal/ratelimit"
	webhookHTTP "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/http"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Limiters carries the per-preset rate limiters applied to route groups.
// Any nil limiter leaves its routes ungated.
type Limiters struct {
	Public  *ratelimit.Limiter
	Heavy   *ratelimit.Limiter
	Trigger *ratelimit.Limiter
}

// Config carries the server wiring that is not a handler.
type Config struct {
	Host             string
	Port             int
	CORSEnabled      bool
	CORSAllowOrigins string
	MeterProvider    otelmetric.MeterProvider
	MetricsNamespace string
}

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(
	cfg Config,
	db *sql.DB,
	webhookHandler *webhookHTTP.WebhookHandler,
	queueHandler *queueHTTP.QueueHandler,
	limiters Limiters,
	logger *slog.Logger,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MeterProvider, cfg.MetricsNamespace))
	}

	server := &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:     db,
		logger: logger,
	}

	router.GET("/health", server.healthHandler)
	router.GET("/ready", server.readinessHandler)

	v1 := router.Group("/v1")
	v1.POST("/webhook", gate(limiters.Trigger, logger), webhookHandler.ReceiveHandler)
	v1.GET("/events/:id", gate(limiters.Public, logger), webhookHandler.GetEventHandler)
	v1.POST("/queue/:name/process", gate(limiters.Heavy, logger), queueHandler.ProcessHandler)

	return server
}

// gate wraps an optional limiter into middleware; nil means ungated.
func gate(limiter *ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return ratelimit.Middleware(limiter, logger)
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readinessHandler reports whether the server can do useful work, which
// for this service means the database answers.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
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
