package app

import (
	"context"
	"fmt"

	auditService "github.com/allisson/sentinel/internal/audit/service"
	auditUseCase "github.com/allisson/sentinel/internal/audit/usecase"
	"github.com/allisson/sentinel/internal/config"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretHTTP "github.com/allisson/sentinel/internal/secret/http"
	secretRepository "github.com/allisson/sentinel/internal/secret/repository"
	secretService "github.com/allisson/sentinel/internal/secret/service"
	secretUseCase "github.com/allisson/sentinel/internal/secret/usecase"
)

// Cipher returns the KMS-backed cipher that protects secret values stored in SQL.
func (c *Container) Cipher() (*secretService.KeeperCipher, error) {
	err := c.once(&c.cipherInit, "cipher", func() error {
		var err error
		c.cipher, err = secretService.OpenKeeperCipher(context.Background(), c.config.KMSKeyURI)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.cipher, nil
}

// SecretRepository returns the secret repository of the selected storage driver.
func (c *Container) SecretRepository() (secretUseCase.SecretRepository, error) {
	err := c.once(&c.secretRepositoryInit, "secretRepository", func() error {
		var err error
		c.secretRepository, err = c.initSecretRepository()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.secretRepository, nil
}

// RotationManager returns the rotation manager with the audit logger attached, the
// audit chain resumed and the configured initial secrets loaded.
func (c *Container) RotationManager() (secretUseCase.RotationManager, error) {
	err := c.once(&c.rotationManagerInit, "rotationManager", c.initRotationManager)
	if err != nil {
		return nil, err
	}
	return c.rotationManager, nil
}

// AuditLogger returns the audit logger. It is built together with the rotation
// manager because each depends on the other.
func (c *Container) AuditLogger() (auditUseCase.Logger, error) {
	if _, err := c.RotationManager(); err != nil {
		return nil, err
	}
	return c.auditLogger, nil
}

// SecretHandler returns the secret admin HTTP handler.
func (c *Container) SecretHandler() (*secretHTTP.SecretHandler, error) {
	err := c.once(&c.secretHandlerInit, "secretHandler", func() error {
		manager, err := c.RotationManager()
		if err != nil {
			return fmt.Errorf("failed to get rotation manager for secret handler: %w", err)
		}
		c.secretHandler = secretHTTP.NewSecretHandler(manager, c.Logger())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.secretHandler, nil
}

// InitialSecrets returns the configured initial value of every secret type that has one.
func (c *Container) InitialSecrets() map[secretDomain.SecretType][]byte {
	initial := make(map[secretDomain.SecretType][]byte)
	for secretType, value := range map[secretDomain.SecretType]string{
		secretDomain.SigningKey:        c.config.SigningKey,
		secretDomain.AuditKey:          c.config.AuditKey,
		secretDomain.OAuthClientSecret: c.config.OAuthClientSecret,
		secretDomain.EncryptionKey:     c.config.EncryptionKey,
	} {
		if value != "" {
			initial[secretType] = []byte(value)
		}
	}
	return initial
}

func (c *Container) initSecretRepository() (secretUseCase.SecretRepository, error) {
	if c.config.StorageDriver == config.StorageMemory {
		return secretRepository.NewMemorySecretRepository(), nil
	}

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for secret repository: %w", err)
	}

	cipher, err := c.Cipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher for secret repository: %w", err)
	}

	switch c.config.StorageDriver {
	case config.StoragePostgres:
		return secretRepository.NewPostgreSQLSecretRepository(db, cipher), nil
	case config.StorageMySQL:
		return secretRepository.NewMySQLSecretRepository(db, cipher), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", c.config.StorageDriver)
	}
}

func (c *Container) initRotationManager() error {
	ctx := context.Background()
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return fmt.Errorf("failed to get tx manager for rotation manager: %w", err)
	}

	repository, err := c.SecretRepository()
	if err != nil {
		return fmt.Errorf("failed to get secret repository for rotation manager: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return fmt.Errorf("failed to get business metrics for rotation manager: %w", err)
	}

	var manager secretUseCase.RotationManager = secretUseCase.NewRotationManager(
		repository,
		txManager,
		secretService.NewRandomGenerator(),
		c.Clock(),
		secretUseCase.Config{
			RotationInterval:      c.config.RotationInterval,
			GracePeriod:           c.config.RotationGracePeriod,
			NotificationThreshold: c.config.RotationNotificationThreshold,
			RevokedRetention:      c.config.RotationRevokedRetention,
		},
		logger,
	)
	if c.config.MetricsEnabled {
		manager = secretUseCase.NewRotationManagerWithMetrics(manager, businessMetrics)
	}

	sink, err := c.AuditSink()
	if err != nil {
		return fmt.Errorf("failed to get audit sink for audit logger: %w", err)
	}

	var auditLogger auditUseCase.Logger = auditUseCase.NewLogger(
		sink,
		manager,
		auditService.NewEntrySigner(),
		c.Clock(),
		auditUseCase.Config{
			FlushInterval:          c.config.AuditFlushInterval,
			MaxBatchSize:           c.config.AuditMaxBatchSize,
			AlertHighPerHour:       c.config.AuditAlertHighPerHour,
			AlertCriticalPerHour:   c.config.AuditAlertCriticalPerHour,
			AlertSuspiciousPerHour: c.config.AuditAlertSuspiciousPerHour,
		},
		logger,
	)
	if c.config.MetricsEnabled {
		auditLogger = auditUseCase.NewLoggerWithMetrics(auditLogger, businessMetrics)
	}

	if err := auditLogger.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume audit chain: %w", err)
	}
	manager.SetAuditLogger(auditLogger)

	if err := manager.Load(ctx, c.InitialSecrets()); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	c.rotationManager = manager
	c.auditLogger = auditLogger
	return nil
}
