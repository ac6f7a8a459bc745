// Package app provides the dependency injection container that assembles the rotation
// manager, request verifier, audit logger and the servers around them.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditHTTP "github.com/allisson/sentinel/internal/audit/http"
	auditUseCase "github.com/allisson/sentinel/internal/audit/usecase"
	"github.com/allisson/sentinel/internal/clock"
	"github.com/allisson/sentinel/internal/config"
	"github.com/allisson/sentinel/internal/database"
	"github.com/allisson/sentinel/internal/http"
	"github.com/allisson/sentinel/internal/metrics"
	"github.com/allisson/sentinel/internal/scheduler"
	secretHTTP "github.com/allisson/sentinel/internal/secret/http"
	secretService "github.com/allisson/sentinel/internal/secret/service"
	secretUseCase "github.com/allisson/sentinel/internal/secret/usecase"
	signingUseCase "github.com/allisson/sentinel/internal/signing/usecase"
)

// Container holds all application dependencies. Components are created on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	clock           clock.Clock
	db              *sql.DB
	txManager       database.TxManager
	cipher          *secretService.KeeperCipher
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Repositories
	secretRepository secretUseCase.SecretRepository
	nonceRepository  signingUseCase.NonceRepository
	auditSink        auditUseCase.Sink

	// Use cases
	rotationManager secretUseCase.RotationManager
	auditLogger     auditUseCase.Logger
	verifier        signingUseCase.Verifier
	signer          signingUseCase.Signer

	// Handlers, servers and workers
	secretHandler   *secretHTTP.SecretHandler
	auditLogHandler *auditHTTP.AuditLogHandler
	httpServer      *http.Server
	metricsServer   *http.MetricsServer
	scheduler       *scheduler.Scheduler

	mu                   sync.Mutex
	loggerInit           sync.Once
	clockInit            sync.Once
	dbInit               sync.Once
	txManagerInit        sync.Once
	cipherInit           sync.Once
	metricsProviderInit  sync.Once
	businessMetricsInit  sync.Once
	secretRepositoryInit sync.Once
	nonceRepositoryInit  sync.Once
	auditSinkInit        sync.Once
	rotationManagerInit  sync.Once
	verifierInit         sync.Once
	signerInit           sync.Once
	secretHandlerInit    sync.Once
	auditLogHandlerInit  sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	schedulerInit        sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the structured JSON logger.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// Clock returns the wall clock shared by every time-dependent component.
func (c *Container) Clock() clock.Clock {
	c.clockInit.Do(func() {
		c.clock = clock.New()
	})
	return c.clock
}

// once runs init a single time under key and returns the stored error on later calls.
func (c *Container) once(o *sync.Once, key string, init func() error) error {
	o.Do(func() {
		if err := init(); err != nil {
			c.mu.Lock()
			c.initErrors[key] = err
			c.mu.Unlock()
		}
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[key]
}

// DB returns the database connection. Fails when the memory storage driver is selected.
func (c *Container) DB() (*sql.DB, error) {
	err := c.once(&c.dbInit, "db", func() error {
		var err error
		c.db, err = c.initDB()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager of the selected storage driver.
func (c *Container) TxManager() (database.TxManager, error) {
	err := c.once(&c.txManagerInit, "txManager", func() error {
		var err error
		c.txManager, err = c.initTxManager()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	err := c.once(&c.metricsProviderInit, "metricsProvider", func() error {
		if !c.config.MetricsEnabled {
			return nil
		}
		var err error
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the use case metrics recorder. A no-op recorder is returned
// when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	err := c.once(&c.businessMetricsInit, "businessMetrics", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return nil
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// Shutdown releases every initialized resource. The audit logger is drained before the
// database it may write to is closed.
func (c *Container) Shutdown(ctx context.Context) error {
	var shutdownErrors []error

	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.auditLogger != nil {
		if err := c.auditLogger.Stop(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("audit logger stop: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.cipher != nil {
		if err := c.cipher.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cipher close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

func (c *Container) initDB() (*sql.DB, error) {
	if c.config.StorageDriver == config.StorageMemory {
		return nil, fmt.Errorf("database is not available with the %q storage driver", c.config.StorageDriver)
	}

	db, err := database.Connect(database.Config{
		Driver:             c.config.StorageDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	if c.config.StorageDriver == config.StorageMemory {
		return database.NewNoopTxManager(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}
