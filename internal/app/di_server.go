package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	auditHTTP "github.com/allisson/sentinel/internal/audit/http"
	"github.com/allisson/sentinel/internal/config"
	"github.com/allisson/sentinel/internal/http"
	"github.com/allisson/sentinel/internal/metrics"
	"github.com/allisson/sentinel/internal/scheduler"
)

// alertResetInterval is how often expired hourly alert counters are cleared.
const alertResetInterval = time.Minute

// HTTPServer returns the API server with its router configured. ctx bounds the
// background goroutines started by the router middleware and is only used on the
// first call.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	err := c.once(&c.httpServerInit, "httpServer", func() error {
		var err error
		c.httpServer, err = c.initHTTPServer(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	err := c.once(&c.metricsServerInit, "metricsServer", func() error {
		provider, err := c.MetricsProvider()
		if err != nil {
			return fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
		}
		if provider == nil {
			return nil
		}
		c.metricsServer = http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Scheduler returns the background task scheduler with every periodic task registered.
func (c *Container) Scheduler() (*scheduler.Scheduler, error) {
	err := c.once(&c.schedulerInit, "scheduler", func() error {
		var err error
		c.scheduler, err = c.initScheduler()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.scheduler, nil
}

func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	logger := c.Logger()

	secretHandler, err := c.SecretHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret handler for http server: %w", err)
	}

	var auditLogHandler *auditHTTP.AuditLogHandler
	if c.config.AuditSink != config.AuditSinkStdout {
		auditLogHandler, err = c.AuditLogHandler()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit log handler for http server: %w", err)
		}
	}

	verifier, err := c.Verifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier for http server: %w", err)
	}

	auditLogger, err := c.AuditLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logger for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}
	if metricsProvider != nil {
		if err := c.registerStateGauges(metricsProvider); err != nil {
			return nil, err
		}
	}

	var db *sql.DB
	if c.config.StorageDriver != config.StorageMemory {
		if db, err = c.DB(); err != nil {
			return nil, fmt.Errorf("failed to get database for http server: %w", err)
		}
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(ctx, c.config, secretHandler, auditLogHandler, verifier, auditLogger, metricsProvider)

	return server, nil
}

func (c *Container) registerStateGauges(provider *metrics.Provider) error {
	manager, err := c.RotationManager()
	if err != nil {
		return fmt.Errorf("failed to get rotation manager for state gauges: %w", err)
	}

	err = metrics.RegisterStateGauges(provider.MeterProvider(), c.config.MetricsNamespace, metrics.StateSources{
		AuditPending: func() int64 {
			return int64(c.auditLogger.Pending())
		},
		SecretVersions: func(ctx context.Context) ([]metrics.SecretVersionCount, error) {
			views, err := manager.List(ctx)
			if err != nil {
				return nil, err
			}
			type key struct{ secretType, status string }
			counts := make(map[key]int64)
			var order []key
			for _, view := range views {
				k := key{secretType: string(view.Type), status: string(view.Status)}
				if _, ok := counts[k]; !ok {
					order = append(order, k)
				}
				counts[k]++
			}
			samples := make([]metrics.SecretVersionCount, 0, len(order))
			for _, k := range order {
				samples = append(samples, metrics.SecretVersionCount{
					Type:   k.secretType,
					Status: k.status,
					Count:  counts[k],
				})
			}
			return samples, nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to register state gauges: %w", err)
	}
	return nil
}

func (c *Container) initScheduler() (*scheduler.Scheduler, error) {
	logger := c.Logger()

	manager, err := c.RotationManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation manager for scheduler: %w", err)
	}

	verifier, err := c.Verifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier for scheduler: %w", err)
	}

	auditLogger, err := c.AuditLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logger for scheduler: %w", err)
	}

	tasks := []scheduler.Task{
		{
			Name:     "secret_health_check",
			Interval: c.config.SecretHealthCheckInterval,
			Run: func(ctx context.Context) error {
				report, err := manager.HealthCheck(ctx)
				if err != nil {
					return err
				}
				if report.UnhealthyCount > 0 {
					logger.Warn("unhealthy secrets detected",
						slog.Int("unhealthy", report.UnhealthyCount),
						slog.Int("healthy", report.HealthyCount),
					)
				}
				return nil
			},
		},
		{
			Name:     "secret_cleanup",
			Interval: c.config.RotationCheckInterval,
			Run: func(ctx context.Context) error {
				_, err := manager.Cleanup(ctx)
				return err
			},
		},
		{
			Name:     "nonce_cleanup",
			Interval: c.config.SigningNonceCleanupInterval,
			Run: func(ctx context.Context) error {
				_, err := verifier.CleanupNonces(ctx)
				return err
			},
		},
		{
			Name:     "audit_alert_reset",
			Interval: alertResetInterval,
			Run: func(ctx context.Context) error {
				auditLogger.ResetExpiredCounters()
				return nil
			},
		},
	}

	if c.config.RotationAutoEnabled {
		tasks = append(tasks, scheduler.Task{
			Name:     "rotation_cycle",
			Interval: c.config.RotationCheckInterval,
			Run: func(ctx context.Context) error {
				_, err := manager.RunRotationCycle(ctx)
				return err
			},
		})
	}

	s := scheduler.New(logger)
	var registerErrors []error
	for _, task := range tasks {
		if err := s.Register(task); err != nil {
			registerErrors = append(registerErrors, err)
		}
	}
	if len(registerErrors) > 0 {
		return nil, errors.Join(registerErrors...)
	}
	return s, nil
}
