package app

import (
	"fmt"
	"os"

	auditHTTP "github.com/allisson/sentinel/internal/audit/http"
	auditRepository "github.com/allisson/sentinel/internal/audit/repository"
	auditUseCase "github.com/allisson/sentinel/internal/audit/usecase"
	"github.com/allisson/sentinel/internal/config"
)

// AuditSink returns the destination of chained audit entries.
func (c *Container) AuditSink() (auditUseCase.Sink, error) {
	err := c.once(&c.auditSinkInit, "auditSink", func() error {
		var err error
		c.auditSink, err = c.initAuditSink()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.auditSink, nil
}

// AuditEntryRepository returns the audit sink when it can read entries back.
// The stdout sink is write-only, so listing and verification are unavailable with it.
func (c *Container) AuditEntryRepository() (auditUseCase.EntryRepository, error) {
	sink, err := c.AuditSink()
	if err != nil {
		return nil, err
	}
	repository, ok := sink.(auditUseCase.EntryRepository)
	if !ok {
		return nil, fmt.Errorf("audit sink %q cannot read entries back", c.config.AuditSink)
	}
	return repository, nil
}

// AuditLogHandler returns the audit log HTTP handler.
func (c *Container) AuditLogHandler() (*auditHTTP.AuditLogHandler, error) {
	err := c.once(&c.auditLogHandlerInit, "auditLogHandler", func() error {
		repository, err := c.AuditEntryRepository()
		if err != nil {
			return fmt.Errorf("failed to get audit entry repository for audit log handler: %w", err)
		}

		auditLogger, err := c.AuditLogger()
		if err != nil {
			return fmt.Errorf("failed to get audit logger for audit log handler: %w", err)
		}

		c.auditLogHandler = auditHTTP.NewAuditLogHandler(repository, auditLogger, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.auditLogHandler, nil
}

func (c *Container) initAuditSink() (auditUseCase.Sink, error) {
	switch c.config.AuditSink {
	case config.AuditSinkMemory:
		return auditRepository.NewMemoryEntryRepository(), nil
	case config.AuditSinkStdout:
		return auditRepository.NewJSONLinesSink(os.Stdout), nil
	case config.AuditSinkDatabase:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for audit sink: %w", err)
		}
		switch c.config.StorageDriver {
		case config.StoragePostgres:
			return auditRepository.NewPostgreSQLEntryRepository(db), nil
		case config.StorageMySQL:
			return auditRepository.NewMySQLEntryRepository(db), nil
		}
		return nil, fmt.Errorf("audit sink %q requires a SQL storage driver", c.config.AuditSink)
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", c.config.AuditSink)
	}
}
