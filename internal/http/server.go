// Package http provides the API server: health endpoints, the signed /v1 admin routes
// and the middleware stack in front of them.
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

	auditHTTP "github.com/allisson/sentinel/internal/audit/http"
	auditUseCase "github.com/allisson/sentinel/internal/audit/usecase"
	"github.com/allisson/sentinel/internal/config"
	"github.com/allisson/sentinel/internal/metrics"
	secretHTTP "github.com/allisson/sentinel/internal/secret/http"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
	signingHTTP "github.com/allisson/sentinel/internal/signing/http"
	signingUseCase "github.com/allisson/sentinel/internal/signing/usecase"
)

// Server represents the HTTP server.
type Server struct {
	db          *sql.DB
	server      *http.Server
	router      *gin.Engine
	logger      *slog.Logger
	dbOptional  bool
	auditLogger auditUseCase.Logger
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
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

// SetupRouter builds the gin engine with every middleware and route.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	secretHandler *secretHTTP.SecretHandler,
	auditLogHandler *auditHTTP.AuditLogHandler,
	verifier signingUseCase.Verifier,
	auditLogger auditUseCase.Logger,
	metricsProvider *metrics.Provider,
) {
	s.dbOptional = cfg.StorageDriver == config.StorageMemory
	s.auditLogger = auditLogger

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	v1.Use(signingHTTP.SignatureMiddleware(
		verifier,
		auditLogger,
		signingDomain.EnforcementMode(cfg.SigningEnforcementMode),
		s.logger,
	))

	secrets := v1.Group("/secrets")
	{
		secrets.GET("", secretHandler.ListHandler)
		secrets.POST("/health-check", secretHandler.HealthCheckHandler)
		secrets.GET("/:type/rotation", secretHandler.RotationStatusHandler)
		secrets.POST("/:type/rotate", secretHandler.RotateHandler)
	}

	// A write-only audit sink has nothing to list or verify.
	if auditLogHandler != nil {
		auditLogs := v1.Group("/audit-logs")
		{
			auditLogs.GET("", auditLogHandler.ListHandler)
			auditLogs.POST("/verify", auditLogHandler.VerifyHandler)
		}
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
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

// healthHandler reports that the process is up.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the backing stores can serve requests.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	switch {
	case s.db != nil:
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("database ping failed", slog.Any("error", err))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	case s.dbOptional:
		components["database"] = "not_configured"
	default:
		components["database"] = "error"
		ready = false
	}

	if s.auditLogger != nil {
		components["audit_pending"] = s.auditLogger.Pending()
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
