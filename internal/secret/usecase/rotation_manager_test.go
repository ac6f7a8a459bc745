package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	"github.com/allisson/sentinel/internal/clock"
	"github.com/allisson/sentinel/internal/database"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	"github.com/allisson/sentinel/internal/secret/repository"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

var testConfig = Config{
	RotationInterval:      30 * 24 * time.Hour,
	GracePeriod:           24 * time.Hour,
	NotificationThreshold: 3 * 24 * time.Hour,
	RevokedRetention:      time.Hour,
}

const validSigningValue = "c2lnbmluZy1rZXktdmFsdWUtdGhhdC1pcy1sb25nLWVub3VnaA"

// mockAuditLogger is a mock implementation of AuditLogger.
type mockAuditLogger struct {
	mock.Mock
}

func (m *mockAuditLogger) LogEvent(
	ctx context.Context,
	input auditDomain.EventInput,
) (*auditDomain.Event, error) {
	args := m.Called(ctx, input)
	return nil, args.Error(0)
}

// failingGenerator returns a fixed value or error.
type failingGenerator struct {
	value []byte
	err   error
}

func (g failingGenerator) Generate(secretType secretDomain.SecretType) ([]byte, error) {
	return g.value, g.err
}

// createFailingRepository fails every Create after the store is seeded.
type createFailingRepository struct {
	*repository.MemorySecretRepository
	fail atomic.Bool
}

func (r *createFailingRepository) Create(ctx context.Context, secret *secretDomain.Secret) error {
	if r.fail.Load() {
		return errors.New("disk full")
	}
	return r.MemorySecretRepository.Create(ctx, secret)
}

type fixture struct {
	manager RotationManager
	repo    *repository.MemorySecretRepository
	clock   *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := repository.NewMemorySecretRepository()
	clk := clock.NewMock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	manager := NewRotationManager(
		repo,
		database.NewNoopTxManager(),
		secretService.NewRandomGenerator(),
		clk,
		testConfig,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	return &fixture{manager: manager, repo: repo, clock: clk}
}

func TestRotationManager_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("stores configured value and provisions the rest", func(t *testing.T) {
		f := newFixture(t)

		err := f.manager.Load(ctx, map[secretDomain.SecretType][]byte{
			secretDomain.SigningKey: []byte(validSigningValue),
		})
		require.NoError(t, err)

		signing, err := f.manager.GetActive(ctx, secretDomain.SigningKey)
		require.NoError(t, err)
		assert.Equal(t, []byte(validSigningValue), signing.Value)
		assert.Equal(t, "signing_key:v1", signing.ID)

		for _, secretType := range secretDomain.SecretTypes {
			active, err := f.manager.GetActive(ctx, secretType)
			require.NoError(t, err, secretType)
			assert.Equal(t, 1, active.Version)
			assert.NoError(t, secretDomain.ValidateValue(secretType, active.Value))
		}
	})

	t.Run("loading twice keeps existing versions", func(t *testing.T) {
		f := newFixture(t)
		initial := map[secretDomain.SecretType][]byte{secretDomain.SigningKey: []byte(validSigningValue)}

		require.NoError(t, f.manager.Load(ctx, initial))
		require.NoError(t, f.manager.Load(ctx, initial))

		secrets, err := f.repo.ListByType(ctx, secretDomain.SigningKey)
		require.NoError(t, err)
		assert.Len(t, secrets, 1)
	})

	t.Run("rejects weak configured value", func(t *testing.T) {
		f := newFixture(t)

		err := f.manager.Load(ctx, map[secretDomain.SecretType][]byte{
			secretDomain.AuditKey: []byte("short"),
		})
		assert.ErrorIs(t, err, secretDomain.ErrSecretValidationFailed)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		f := newFixture(t)

		err := f.manager.Load(ctx, map[secretDomain.SecretType][]byte{"ssh_key": []byte(validSigningValue)})
		assert.ErrorIs(t, err, secretDomain.ErrInvalidSecretType)
	})
}

func TestRotationManager_GetActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.manager.GetActive(ctx, secretDomain.SigningKey)
	assert.ErrorIs(t, err, secretDomain.ErrNoActiveSecret)

	require.NoError(t, f.manager.Load(ctx, nil))

	_, err = f.manager.GetActive(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	second, err := f.manager.GetActive(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.UseCount)
	assert.Equal(t, f.clock.Now(), *second.LastUsedAt)
}

func TestRotationManager_Rotate_GracePeriodContinuity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.manager.Load(ctx, map[secretDomain.SecretType][]byte{
		secretDomain.SigningKey: []byte(validSigningValue),
	}))

	result, err := f.manager.Rotate(ctx, secretDomain.SigningKey, "manual")
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewVersion)
	assert.Equal(t, "signing_key:v1", result.PreviousID)
	require.NotNil(t, result.GraceUntil)
	assert.Equal(t, f.clock.Now().Add(testConfig.GracePeriod), *result.GraceUntil)

	active, err := f.manager.GetActive(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	assert.Equal(t, "signing_key:v2", active.ID)

	acceptable, err := f.manager.Acceptable(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	require.Len(t, acceptable, 2)
	assert.Equal(t, "signing_key:v2", acceptable[0].ID)
	assert.Equal(t, "signing_key:v1", acceptable[1].ID)

	previous, err := f.manager.GetByVersion(ctx, "signing_key:v1")
	require.NoError(t, err)
	assert.Equal(t, secretDomain.StatusDeprecated, previous.Status)

	f.clock.Advance(testConfig.GracePeriod)

	acceptable, err = f.manager.Acceptable(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	require.Len(t, acceptable, 1)
	assert.Equal(t, "signing_key:v2", acceptable[0].ID)

	_, err = f.manager.GetByVersion(ctx, "signing_key:v1")
	assert.ErrorIs(t, err, secretDomain.ErrSecretNotFound)

	// Lookup still sees the version until it is evicted.
	_, err = f.manager.Lookup(ctx, "signing_key:v1")
	assert.NoError(t, err)
}

func TestRotationManager_StatusIsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.manager.Load(ctx, nil))

	observed := []secretDomain.Status{}
	observe := func() {
		secret, err := f.repo.Get(ctx, "signing_key:v1")
		if err == nil && (len(observed) == 0 || observed[len(observed)-1] != secret.Status) {
			observed = append(observed, secret.Status)
		}
	}

	observe()
	_, err := f.manager.Rotate(ctx, secretDomain.SigningKey, "manual")
	require.NoError(t, err)
	observe()

	f.clock.Advance(testConfig.GracePeriod + time.Second)
	cleanup, err := f.manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"signing_key:v1"}, cleanup.Revoked)
	assert.Empty(t, cleanup.Evicted)
	observe()

	// A second cleanup inside the retention period changes nothing.
	cleanup, err = f.manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Empty(t, cleanup.Revoked)
	assert.Empty(t, cleanup.Evicted)

	assert.Equal(t, []secretDomain.Status{
		secretDomain.StatusActive,
		secretDomain.StatusDeprecated,
		secretDomain.StatusRevoked,
	}, observed)

	f.clock.Advance(testConfig.RevokedRetention)
	cleanup, err = f.manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"signing_key:v1"}, cleanup.Evicted)

	_, err = f.manager.Lookup(ctx, "signing_key:v1")
	assert.ErrorIs(t, err, secretDomain.ErrSecretNotFound)
}

func TestRotationManager_Cleanup_KeepsRevokedAuditKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.manager.Load(ctx, nil))

	_, err := f.manager.Rotate(ctx, secretDomain.AuditKey, "manual")
	require.NoError(t, err)

	f.clock.Advance(testConfig.GracePeriod + time.Second)
	cleanup, err := f.manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit_key:v1"}, cleanup.Revoked)

	f.clock.Advance(10 * testConfig.RevokedRetention)
	cleanup, err = f.manager.Cleanup(ctx)
	require.NoError(t, err)
	assert.Empty(t, cleanup.Evicted)

	secret, err := f.manager.Lookup(ctx, "audit_key:v1")
	require.NoError(t, err)
	assert.Equal(t, secretDomain.StatusRevoked, secret.Status)

	active, err := f.manager.GetActive(ctx, secretDomain.AuditKey)
	require.NoError(t, err)
	assert.Equal(t, "audit_key:v2", active.ID)
}

func TestRotationManager_Rotate_FailureKeepsActive(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		generator secretService.Generator
	}{
		{"generator error", failingGenerator{err: errors.New("entropy exhausted")}},
		{"value fails validation", failingGenerator{value: []byte("too-short")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemorySecretRepository()
			clk := clock.NewMock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))

			seed := NewRotationManager(repo, database.NewNoopTxManager(),
				secretService.NewRandomGenerator(), clk, testConfig, logger)
			require.NoError(t, seed.Load(ctx, nil))

			manager := NewRotationManager(repo, database.NewNoopTxManager(), tt.generator, clk, testConfig, logger)
			auditLogger := &mockAuditLogger{}
			auditLogger.On("LogEvent", ctx, mock.MatchedBy(func(input auditDomain.EventInput) bool {
				return input.Category == auditDomain.CategorySecretRotation &&
					input.Outcome == auditDomain.OutcomeFailure
			})).Return(nil).Once()
			manager.SetAuditLogger(auditLogger)

			_, err := manager.Rotate(ctx, secretDomain.SigningKey, "scheduled")
			assert.ErrorIs(t, err, secretDomain.ErrRotationFailed)

			active, err := manager.GetActive(ctx, secretDomain.SigningKey)
			require.NoError(t, err)
			assert.Equal(t, "signing_key:v1", active.ID)
			assert.Equal(t, secretDomain.StatusActive, active.Status)
			auditLogger.AssertExpectations(t)
		})
	}
}

func TestRotationManager_Rotate_StoreFailureRestoresPrevious(t *testing.T) {
	ctx := context.Background()
	repo := &createFailingRepository{MemorySecretRepository: repository.NewMemorySecretRepository()}
	clk := clock.NewMock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	manager := NewRotationManager(repo, database.NewNoopTxManager(), secretService.NewRandomGenerator(),
		clk, testConfig, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, manager.Load(ctx, nil))
	repo.fail.Store(true)

	_, err := manager.Rotate(ctx, secretDomain.EncryptionKey, "manual")
	assert.ErrorIs(t, err, secretDomain.ErrRotationFailed)

	active, err := manager.GetActive(ctx, secretDomain.EncryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "encryption_key:v1", active.ID)
	assert.Nil(t, active.GraceUntil)
}

func TestRotationManager_NeedsRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	need, err := f.manager.NeedsRotation(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	assert.True(t, need.Needed)
	assert.Equal(t, secretDomain.UrgencyCritical, need.Urgency)

	require.NoError(t, f.manager.Load(ctx, nil))

	need, err = f.manager.NeedsRotation(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	assert.False(t, need.Needed)

	f.clock.Advance(testConfig.RotationInterval * 8 / 10)
	need, err = f.manager.NeedsRotation(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	assert.Equal(t, secretDomain.UrgencyLow, need.Urgency)

	f.clock.Advance(testConfig.RotationInterval - testConfig.RotationInterval*8/10 - testConfig.NotificationThreshold)
	need, err = f.manager.NeedsRotation(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	assert.Equal(t, secretDomain.UrgencyHigh, need.Urgency)

	f.clock.Advance(testConfig.NotificationThreshold)
	need, err = f.manager.NeedsRotation(ctx, secretDomain.SigningKey)
	require.NoError(t, err)
	assert.Equal(t, secretDomain.UrgencyCritical, need.Urgency)

	_, err = f.manager.NeedsRotation(ctx, "bogus")
	assert.ErrorIs(t, err, secretDomain.ErrInvalidSecretType)
}

func TestRotationManager_RunRotationCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.manager.Load(ctx, nil))

	results, err := f.manager.RunRotationCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)

	// Make the encryption key critical while the others are only routine.
	f.clock.Advance(testConfig.RotationInterval * 8 / 10)
	_, err = f.manager.Rotate(ctx, secretDomain.SigningKey, "manual")
	require.NoError(t, err)
	require.NoError(t, f.repo.Delete(ctx, "encryption_key:v1"))

	results, err = f.manager.RunRotationCycle(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, secretDomain.EncryptionKey, results[0].Type)
	assert.True(t, results[0].WasFirstIssue)
	assert.Contains(t, results[0].Reason, "critical")
	assert.Equal(t, secretDomain.AuditKey, results[1].Type)
	assert.Equal(t, secretDomain.OAuthClientSecret, results[2].Type)
}

func TestRotationManager_HealthCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.manager.Load(ctx, nil))

	report, err := f.manager.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.HealthyCount)
	assert.Zero(t, report.UnhealthyCount)

	tampered, err := f.repo.Get(ctx, "oauth_client_secret:v1")
	require.NoError(t, err)
	tampered.Value[0] ^= 0x01
	require.NoError(t, f.repo.Update(ctx, tampered))

	auditLogger := &mockAuditLogger{}
	auditLogger.On("LogEvent", ctx, mock.MatchedBy(func(input auditDomain.EventInput) bool {
		return input.Category == auditDomain.CategorySuspiciousActivity
	})).Return(nil).Once()
	f.manager.SetAuditLogger(auditLogger)

	report, err = f.manager.HealthCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.HealthyCount)
	assert.Equal(t, 1, report.UnhealthyCount)
	require.NotEmpty(t, report.Issues)
	assert.Equal(t, "oauth_client_secret:v1", report.Issues[0].SecretID)
	assert.Equal(t, "checksum mismatch", report.Issues[0].Problem)
	auditLogger.AssertExpectations(t)

	need, err := f.manager.NeedsRotation(ctx, secretDomain.OAuthClientSecret)
	require.NoError(t, err)
	assert.Equal(t, secretDomain.UrgencyMedium, need.Urgency)
}

func TestRotationManager_ReadersNeverSeeZeroActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.manager.Load(ctx, nil))

	var misses atomic.Int64
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := f.manager.GetActive(ctx, secretDomain.SigningKey); err != nil {
					misses.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 25; i++ {
		_, err := f.manager.Rotate(ctx, secretDomain.SigningKey, "stress")
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	assert.Zero(t, misses.Load())

	views, err := f.manager.List(ctx)
	require.NoError(t, err)
	active := 0
	for _, view := range views {
		if view.Type == secretDomain.SigningKey && view.Status == secretDomain.StatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestRotationManager_RotationEmitsAuditEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.manager.Load(ctx, nil))

	auditLogger := &mockAuditLogger{}
	auditLogger.On("LogEvent", ctx, mock.MatchedBy(func(input auditDomain.EventInput) bool {
		return input.Category == auditDomain.CategorySecretRotation &&
			input.Outcome == auditDomain.OutcomeSuccess &&
			input.Details["previous_id"] == "audit_key:v1"
	})).Return(nil).Once()
	f.manager.SetAuditLogger(auditLogger)

	_, err := f.manager.Rotate(ctx, secretDomain.AuditKey, "manual")
	require.NoError(t, err)
	auditLogger.AssertExpectations(t)

	_, err = f.manager.Rotate(ctx, "bogus", "manual")
	assert.ErrorIs(t, err, secretDomain.ErrInvalidSecretType)
}
