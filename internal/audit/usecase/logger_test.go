package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	auditRepository "github.com/allisson/sentinel/internal/audit/repository"
	auditService "github.com/allisson/sentinel/internal/audit/service"
	"github.com/allisson/sentinel/internal/clock"
	"github.com/allisson/sentinel/internal/database"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretRepository "github.com/allisson/sentinel/internal/secret/repository"
	secretService "github.com/allisson/sentinel/internal/secret/service"
	secretUseCase "github.com/allisson/sentinel/internal/secret/usecase"
)

var testConfig = Config{
	FlushInterval: time.Hour,
	MaxBatchSize:  50,
}

// flakySink fails every Emit while failing is set, after letting okBefore entries through.
type flakySink struct {
	mu       sync.Mutex
	next     *auditRepository.MemoryEntryRepository
	failing  bool
	okBefore int
	calls    int
}

func (f *flakySink) Emit(ctx context.Context, entry *auditDomain.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.failing && f.calls > f.okBefore {
		return errors.New("sink unavailable")
	}
	return f.next.Emit(ctx, entry)
}

func (f *flakySink) recover() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = false
}

// failingKeys never returns an audit key.
type failingKeys struct{}

func (failingKeys) GetActive(ctx context.Context, secretType secretDomain.SecretType) (*secretDomain.Secret, error) {
	return nil, secretDomain.ErrNoActiveSecret
}

func (failingKeys) Lookup(ctx context.Context, id string) (*secretDomain.Secret, error) {
	return nil, secretDomain.ErrSecretNotFound
}

type fixture struct {
	keys    secretUseCase.RotationManager
	clock   *clock.Mock
	entries *auditRepository.MemoryEntryRepository
	logger  Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()

	clk := clock.NewMock(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	keys := secretUseCase.NewRotationManager(
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
		discardLogger(),
	)
	require.NoError(t, keys.Load(context.Background(), nil))

	entries := auditRepository.NewMemoryEntryRepository()
	return &fixture{
		keys:    keys,
		clock:   clk,
		entries: entries,
		logger:  NewLogger(entries, keys, auditService.NewEntrySigner(), clk, config, discardLogger()),
	}
}

func (f *fixture) logN(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.logger.LogEvent(context.Background(), auditDomain.EventInput{
			Category: auditDomain.CategoryDataAccess,
			Action:   "read",
			Outcome:  auditDomain.OutcomeSuccess,
			Actor:    auditDomain.Actor{IP: "10.0.0.1", UserID: "user-1"},
			Message:  "secret metadata listed",
			Details:  map[string]any{"index": i},
		})
		require.NoError(t, err)
	}
}

func (f *fixture) stored(t *testing.T) []*auditDomain.Entry {
	t.Helper()
	entries, err := f.entries.ListRange(context.Background(), 1, 0)
	require.NoError(t, err)
	return entries
}

func TestLogger_LogEvent(t *testing.T) {
	f := newFixture(t, testConfig)

	event, err := f.logger.LogEvent(context.Background(), auditDomain.EventInput{
		Category: auditDomain.CategoryInjectionAttempt,
		Action:   "verify",
		Outcome:  auditDomain.OutcomeBlocked,
	})
	require.NoError(t, err)
	assert.Equal(t, auditDomain.SeverityCritical, event.Severity)
	assert.Equal(t, 100, event.RiskScore)
	assert.Equal(t, f.clock.Now(), event.Timestamp)
	assert.Equal(t, 1, f.logger.Pending())

	_, err = f.logger.LogEvent(context.Background(), auditDomain.EventInput{
		Category: "made_up",
		Action:   "verify",
		Outcome:  auditDomain.OutcomeBlocked,
	})
	assert.ErrorIs(t, err, auditDomain.ErrInvalidEvent)
	assert.Equal(t, 1, f.logger.Pending())
}

func TestLogger_FlushBuildsChain(t *testing.T) {
	f := newFixture(t, testConfig)
	f.logN(t, 5)

	n, err := f.logger.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Zero(t, f.logger.Pending())

	entries := f.stored(t)
	require.Len(t, entries, 5)
	assert.Equal(t, auditDomain.GenesisHash, entries[0].PreviousHash)
	for i, entry := range entries {
		assert.Equal(t, uint64(i+1), entry.SequenceNumber)
		assert.Equal(t, "audit_key:v1", entry.KeyID)
		if i > 0 {
			assert.Equal(t, entries[i-1].Hash, entry.PreviousHash)
		}
	}

	report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
	assert.True(t, report.IsValid)
	assert.False(t, report.ChainBroken)
	assert.Equal(t, 5, report.CheckedEntries)
	assert.Empty(t, report.InvalidEntries)

	n, err = f.logger.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogger_VerifyIntegrityDetectsTampering(t *testing.T) {
	f := newFixture(t, testConfig)
	f.logN(t, 5)
	_, err := f.logger.Flush(context.Background())
	require.NoError(t, err)

	signer := auditService.NewEntrySigner()

	t.Run("modified event", func(t *testing.T) {
		entries := f.stored(t)
		entries[2].Event.Message = "nothing happened"

		report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
		assert.False(t, report.IsValid)
		assert.False(t, report.ChainBroken)
		require.Len(t, report.InvalidEntries, 1)
		assert.Equal(t, uint64(3), report.InvalidEntries[0].SequenceNumber)
		assert.Contains(t, report.InvalidEntries[0].Reasons, "hash mismatch")
		assert.Contains(t, report.InvalidEntries[0].Reasons, "signature mismatch")
	})

	t.Run("modified event with recomputed hash", func(t *testing.T) {
		entries := f.stored(t)
		entries[2].Event.Outcome = auditDomain.OutcomeFailure
		hash, err := signer.Hash(entries[2])
		require.NoError(t, err)
		entries[2].Hash = hash

		report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
		assert.False(t, report.IsValid)
		assert.True(t, report.ChainBroken)
		require.Len(t, report.InvalidEntries, 2)
		assert.Equal(t, []string{"signature mismatch"}, report.InvalidEntries[0].Reasons)
		assert.Equal(t, uint64(4), report.InvalidEntries[1].SequenceNumber)
	})

	t.Run("deleted entry", func(t *testing.T) {
		entries := f.stored(t)
		entries = append(entries[:2], entries[3:]...)

		report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
		assert.False(t, report.IsValid)
		assert.True(t, report.ChainBroken)
		require.Len(t, report.InvalidEntries, 1)
		assert.Equal(t, uint64(4), report.InvalidEntries[0].SequenceNumber)
		assert.Contains(t, report.InvalidEntries[0].Reasons, "sequence gap: expected 3, got 4")
	})

	t.Run("reordered entries", func(t *testing.T) {
		entries := f.stored(t)
		entries[1], entries[2] = entries[2], entries[1]

		report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
		assert.False(t, report.IsValid)
		assert.True(t, report.ChainBroken)
		assert.Len(t, report.InvalidEntries, 3)
	})

	t.Run("forged genesis link", func(t *testing.T) {
		entries := f.stored(t)
		entries[0].PreviousHash = entries[1].Hash

		report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
		assert.True(t, report.ChainBroken)
		assert.Contains(t, report.InvalidEntries[0].Reasons, "first entry does not link to genesis")
	})

	t.Run("deleted head entry", func(t *testing.T) {
		entries := f.stored(t)[1:]

		report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
		assert.False(t, report.IsValid)
		assert.True(t, report.ChainBroken)
		require.Len(t, report.InvalidEntries, 1)
		assert.Equal(t, uint64(2), report.InvalidEntries[0].SequenceNumber)
		assert.Contains(t, report.InvalidEntries[0].Reasons, "range starts at 2, expected 1")
		assert.Contains(t, report.InvalidEntries[0].Reasons, "first entry does not link to genesis")
	})

	t.Run("range starting mid chain", func(t *testing.T) {
		entries := f.stored(t)[2:]

		report := f.logger.VerifyIntegrity(context.Background(), 3, entries)
		assert.True(t, report.IsValid)
		assert.Equal(t, 3, report.CheckedEntries)
	})

	t.Run("empty result for emitted range", func(t *testing.T) {
		report := f.logger.VerifyIntegrity(context.Background(), 3, nil)
		assert.False(t, report.IsValid)
		assert.True(t, report.ChainBroken)
		require.Len(t, report.InvalidEntries, 1)
		assert.Equal(t, uint64(3), report.InvalidEntries[0].SequenceNumber)
	})

	t.Run("empty result past the tail", func(t *testing.T) {
		report := f.logger.VerifyIntegrity(context.Background(), 6, nil)
		assert.True(t, report.IsValid)
		assert.Zero(t, report.CheckedEntries)
	})

	t.Run("unsigned key id", func(t *testing.T) {
		entries := f.stored(t)
		entries[4].KeyID = "signing_key:v1"

		report := f.logger.VerifyIntegrity(context.Background(), 1, entries)
		require.Len(t, report.InvalidEntries, 1)
		assert.Contains(t, report.InvalidEntries[0].Reasons, "audit key unavailable: signing_key:v1")
	})
}

func TestLogger_FlushFailureRebuffers(t *testing.T) {
	f := newFixture(t, testConfig)
	sink := &flakySink{next: f.entries, failing: true, okBefore: 1}
	logger := NewLogger(sink, f.keys, auditService.NewEntrySigner(), f.clock, testConfig, discardLogger())
	ctx := context.Background()

	for _, action := range []string{"a", "b", "c"} {
		_, err := logger.LogEvent(ctx, auditDomain.EventInput{
			Category: auditDomain.CategoryAuthentication, Action: action, Outcome: auditDomain.OutcomeSuccess,
		})
		require.NoError(t, err)
	}

	n, err := logger.Flush(ctx)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, auditDomain.ErrFlushTransientFailure)
	assert.Equal(t, 2, logger.Pending())
	assert.Equal(t, 1, f.entries.Len())

	_, err = logger.LogEvent(ctx, auditDomain.EventInput{
		Category: auditDomain.CategoryAuthentication, Action: "d", Outcome: auditDomain.OutcomeSuccess,
	})
	require.NoError(t, err)

	sink.recover()
	n, err = logger.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries := f.stored(t)
	require.Len(t, entries, 4)
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Event.Action)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, actions)
	assert.True(t, logger.VerifyIntegrity(ctx, 1, entries).IsValid)
}

func TestLogger_FlushWithoutAuditKey(t *testing.T) {
	f := newFixture(t, testConfig)
	logger := NewLogger(f.entries, failingKeys{}, auditService.NewEntrySigner(), f.clock, testConfig, discardLogger())

	_, err := logger.LogEvent(context.Background(), auditDomain.EventInput{
		Category: auditDomain.CategorySystemError, Action: "boot", Outcome: auditDomain.OutcomeFailure,
	})
	require.NoError(t, err)

	n, err := logger.Flush(context.Background())
	assert.Zero(t, n)
	assert.ErrorIs(t, err, auditDomain.ErrAuditKeyUnavailable)
	assert.Equal(t, 1, logger.Pending())
	assert.Zero(t, f.entries.Len())
}

func TestLogger_ScenarioC_CriticalEventFlushesImmediately(t *testing.T) {
	f := newFixture(t, testConfig)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.logger.Start(ctx)
	defer func() { require.NoError(t, f.logger.Stop(context.Background())) }()

	f.logN(t, 2)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, f.entries.Len(), "low severity events wait for the timer")

	_, err := f.logger.LogEvent(ctx, auditDomain.EventInput{
		Category: auditDomain.CategoryInjectionAttempt,
		Action:   "verify",
		Outcome:  auditDomain.OutcomeBlocked,
		Actor:    auditDomain.Actor{IP: "203.0.113.9"},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.entries.Len() == 3 }, time.Second, 5*time.Millisecond)
	entries := f.stored(t)
	assert.Equal(t, auditDomain.SeverityCritical, entries[2].Event.Severity)
}

func TestLogger_BatchSizeTriggersFlush(t *testing.T) {
	config := testConfig
	config.MaxBatchSize = 3
	f := newFixture(t, config)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.logger.Start(ctx)
	defer func() { require.NoError(t, f.logger.Stop(context.Background())) }()

	f.logN(t, 3)
	assert.Eventually(t, func() bool { return f.entries.Len() == 3 }, time.Second, 5*time.Millisecond)
}

func TestLogger_TimerFlush(t *testing.T) {
	config := testConfig
	config.FlushInterval = 10 * time.Millisecond
	f := newFixture(t, config)

	f.logger.Start(context.Background())
	f.logN(t, 1)
	assert.Eventually(t, func() bool { return f.entries.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.logger.Stop(context.Background()))
}

func TestLogger_StopDrainsAndRejects(t *testing.T) {
	f := newFixture(t, testConfig)
	f.logger.Start(context.Background())

	f.logN(t, 4)
	require.NoError(t, f.logger.Stop(context.Background()))
	assert.Equal(t, 4, f.entries.Len())

	_, err := f.logger.LogEvent(context.Background(), auditDomain.EventInput{
		Category: auditDomain.CategoryDataAccess, Action: "read", Outcome: auditDomain.OutcomeSuccess,
	})
	assert.ErrorIs(t, err, auditDomain.ErrLoggerStopped)

	require.NoError(t, f.logger.Stop(context.Background()))
}

func TestLogger_AlertThresholds(t *testing.T) {
	config := testConfig
	config.AlertCriticalPerHour = 2
	f := newFixture(t, config)
	ctx := context.Background()

	logCritical := func() {
		_, err := f.logger.LogEvent(ctx, auditDomain.EventInput{
			Category: auditDomain.CategoryInjectionAttempt, Action: "verify", Outcome: auditDomain.OutcomeBlocked,
		})
		require.NoError(t, err)
	}
	alerts := func() []*auditDomain.Entry {
		_, err := f.logger.Flush(ctx)
		require.NoError(t, err)
		found := make([]*auditDomain.Entry, 0)
		for _, entry := range f.stored(t) {
			if entry.Event.Category == auditDomain.CategoryAlert {
				found = append(found, entry)
			}
		}
		return found
	}

	logCritical()
	logCritical()
	assert.Empty(t, alerts())

	logCritical()
	got := alerts()
	require.Len(t, got, 1)
	assert.Equal(t, auditDomain.SeverityCritical, got[0].Event.Severity)
	assert.Equal(t, "threshold_exceeded", got[0].Event.Action)
	assert.Equal(t, "injection_attempt", got[0].Event.Details["category"])
	assert.Equal(t, "critical_severity", got[0].Event.Details["kind"])

	logCritical()
	assert.Len(t, alerts(), 1, "one alert per kind per window")

	f.clock.Advance(30 * time.Minute)
	f.logger.ResetExpiredCounters()
	logCritical()
	assert.Len(t, alerts(), 1, "window has not elapsed")

	f.clock.Advance(31 * time.Minute)
	f.logger.ResetExpiredCounters()
	logCritical()
	logCritical()
	logCritical()
	assert.Len(t, alerts(), 2)
}

func TestLogger_SuspiciousPatternAlert(t *testing.T) {
	config := testConfig
	config.AlertSuspiciousPerHour = 1
	f := newFixture(t, config)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.logger.LogEvent(ctx, auditDomain.EventInput{
			Category: auditDomain.CategoryReplayAttempt, Action: "verify", Outcome: auditDomain.OutcomeBlocked,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, f.logger.Pending())
	_, err := f.logger.Flush(ctx)
	require.NoError(t, err)
	entries := f.stored(t)
	assert.Equal(t, auditDomain.CategoryAlert, entries[2].Event.Category)
	assert.Equal(t, "suspicious_pattern", entries[2].Event.Details["kind"])
}

func TestLogger_AuditKeyRotation(t *testing.T) {
	f := newFixture(t, testConfig)
	ctx := context.Background()

	f.logN(t, 2)
	_, err := f.logger.Flush(ctx)
	require.NoError(t, err)

	_, err = f.keys.Rotate(ctx, secretDomain.AuditKey, "scheduled")
	require.NoError(t, err)

	f.logN(t, 2)
	_, err = f.logger.Flush(ctx)
	require.NoError(t, err)

	entries := f.stored(t)
	require.Len(t, entries, 4)
	assert.Equal(t, "audit_key:v1", entries[1].KeyID)
	assert.Equal(t, "audit_key:v2", entries[2].KeyID)
	assert.True(t, f.logger.VerifyIntegrity(ctx, 1, entries).IsValid)

	// Revoked audit keys outlive the retention period, so old entries stay verifiable.
	f.clock.Advance(24 * time.Hour)
	_, err = f.keys.Cleanup(ctx)
	require.NoError(t, err)
	assert.True(t, f.logger.VerifyIntegrity(ctx, 1, entries).IsValid)

	f.clock.Advance(27 * time.Hour)
	_, err = f.keys.Cleanup(ctx)
	require.NoError(t, err)
	_, err = f.keys.Cleanup(ctx)
	require.NoError(t, err)

	report := f.logger.VerifyIntegrity(ctx, 1, entries)
	assert.True(t, report.IsValid)
	assert.False(t, report.ChainBroken)
	assert.Empty(t, report.InvalidEntries)
}

func TestLogger_ResumeContinuesChain(t *testing.T) {
	f := newFixture(t, testConfig)
	ctx := context.Background()

	f.logN(t, 3)
	_, err := f.logger.Flush(ctx)
	require.NoError(t, err)

	restarted := NewLogger(f.entries, f.keys, auditService.NewEntrySigner(), f.clock, testConfig, discardLogger())
	require.NoError(t, restarted.Resume(ctx))

	_, err = restarted.LogEvent(ctx, auditDomain.EventInput{
		Category: auditDomain.CategoryAuthentication, Action: "login", Outcome: auditDomain.OutcomeSuccess,
	})
	require.NoError(t, err)
	_, err = restarted.Flush(ctx)
	require.NoError(t, err)

	entries := f.stored(t)
	require.Len(t, entries, 4)
	assert.Equal(t, uint64(4), entries[3].SequenceNumber)
	assert.True(t, restarted.VerifyIntegrity(ctx, 1, entries).IsValid)
}

func TestLogger_ConcurrentLogging(t *testing.T) {
	config := testConfig
	config.MaxBatchSize = 7
	f := newFixture(t, config)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.logger.Start(ctx)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := f.logger.LogEvent(ctx, auditDomain.EventInput{
					Category: auditDomain.CategoryAuthorization, Action: "check", Outcome: auditDomain.OutcomeSuccess,
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, f.logger.Stop(context.Background()))

	entries := f.stored(t)
	require.Len(t, entries, 200)
	assert.True(t, f.logger.VerifyIntegrity(context.Background(), 1, entries).IsValid)
}
