package app

import (
	"fmt"

	"github.com/allisson/sentinel/internal/config"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
	signingRepository "github.com/allisson/sentinel/internal/signing/repository"
	signingUseCase "github.com/allisson/sentinel/internal/signing/usecase"
)

// NonceRepository returns the nonce store of the selected storage driver.
func (c *Container) NonceRepository() (signingUseCase.NonceRepository, error) {
	err := c.once(&c.nonceRepositoryInit, "nonceRepository", func() error {
		var err error
		c.nonceRepository, err = c.initNonceRepository()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.nonceRepository, nil
}

// Verifier returns the inbound request signature verifier.
func (c *Container) Verifier() (signingUseCase.Verifier, error) {
	err := c.once(&c.verifierInit, "verifier", func() error {
		var err error
		c.verifier, err = c.initVerifier()
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.verifier, nil
}

// Signer returns the outbound request signer.
func (c *Container) Signer() (signingUseCase.Signer, error) {
	err := c.once(&c.signerInit, "signer", func() error {
		manager, err := c.RotationManager()
		if err != nil {
			return fmt.Errorf("failed to get rotation manager for signer: %w", err)
		}

		c.signer = signingUseCase.NewSigner(manager, c.Clock())
		if c.config.MetricsEnabled {
			businessMetrics, err := c.BusinessMetrics()
			if err != nil {
				return fmt.Errorf("failed to get business metrics for signer: %w", err)
			}
			c.signer = signingUseCase.NewSignerWithMetrics(c.signer, businessMetrics)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.signer, nil
}

func (c *Container) initNonceRepository() (signingUseCase.NonceRepository, error) {
	switch c.config.StorageDriver {
	case config.StorageMemory:
		return signingRepository.NewMemoryNonceRepository(), nil
	case config.StoragePostgres, config.StorageMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for nonce repository: %w", err)
		}
		if c.config.StorageDriver == config.StorageMySQL {
			return signingRepository.NewMySQLNonceRepository(db), nil
		}
		return signingRepository.NewPostgreSQLNonceRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", c.config.StorageDriver)
	}
}

func (c *Container) initVerifier() (signingUseCase.Verifier, error) {
	manager, err := c.RotationManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation manager for verifier: %w", err)
	}

	nonces, err := c.NonceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce repository for verifier: %w", err)
	}

	verifier := signingUseCase.NewVerifier(
		manager,
		nonces,
		c.Clock(),
		signingUseCase.Config{
			TimestampTolerance:       c.config.SigningTimestampTolerance,
			StrictTimestampTolerance: c.config.SigningStrictTimestampTolerance,
			NonceWindow:              c.config.SigningNonceWindow,
			Mode:                     signingDomain.EnforcementMode(c.config.SigningEnforcementMode),
			SensitivePaths:           c.config.SigningSensitivePaths,
		},
		c.Logger(),
	)

	if !c.config.MetricsEnabled {
		return verifier, nil
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for verifier: %w", err)
	}
	return signingUseCase.NewVerifierWithMetrics(verifier, businessMetrics), nil
}
