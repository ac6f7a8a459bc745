package commands

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	auditRepository "github.com/allisson/sentinel/internal/audit/repository"
	auditService "github.com/allisson/sentinel/internal/audit/service"
	auditUseCase "github.com/allisson/sentinel/internal/audit/usecase"
	"github.com/allisson/sentinel/internal/clock"
	"github.com/allisson/sentinel/internal/database"
	secretRepository "github.com/allisson/sentinel/internal/secret/repository"
	secretService "github.com/allisson/sentinel/internal/secret/service"
	secretUseCase "github.com/allisson/sentinel/internal/secret/usecase"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
	signingRepository "github.com/allisson/sentinel/internal/signing/repository"
	signingUseCase "github.com/allisson/sentinel/internal/signing/usecase"
)

// stack wires the real components over memory stores.
type stack struct {
	clock       *clock.Mock
	logger      *slog.Logger
	manager     secretUseCase.RotationManager
	entries     *auditRepository.MemoryEntryRepository
	auditLogger auditUseCase.Logger
	nonces      *signingRepository.MemoryNonceRepository
	verifier    signingUseCase.Verifier
	signer      signingUseCase.Signer
}

func newStack(t *testing.T) *stack {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	manager := secretUseCase.NewRotationManager(
		secretRepository.NewMemorySecretRepository(),
		database.NewNoopTxManager(),
		secretService.NewRandomGenerator(),
		clk,
		secretUseCase.Config{
			RotationInterval:      30 * 24 * time.Hour,
			GracePeriod:           24 * time.Hour,
			NotificationThreshold: 7 * 24 * time.Hour,
			RevokedRetention:      time.Hour,
		},
		logger,
	)

	entries := auditRepository.NewMemoryEntryRepository()
	auditLogger := auditUseCase.NewLogger(
		entries,
		manager,
		auditService.NewEntrySigner(),
		clk,
		auditUseCase.Config{FlushInterval: time.Hour, MaxBatchSize: 100},
		logger,
	)
	manager.SetAuditLogger(auditLogger)
	require.NoError(t, manager.Load(context.Background(), nil))

	nonces := signingRepository.NewMemoryNonceRepository()
	verifier := signingUseCase.NewVerifier(manager, nonces, clk, signingUseCase.Config{
		TimestampTolerance:       5 * time.Minute,
		StrictTimestampTolerance: time.Minute,
		NonceWindow:              10 * time.Minute,
		Mode:                     signingDomain.EnforcementStrict,
		SensitivePaths:           []string{"/v1"},
	}, logger)

	return &stack{
		clock:       clk,
		logger:      logger,
		manager:     manager,
		entries:     entries,
		auditLogger: auditLogger,
		nonces:      nonces,
		verifier:    verifier,
		signer:      signingUseCase.NewSigner(manager, clk),
	}
}
