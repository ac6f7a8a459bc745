package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	"github.com/allisson/sentinel/internal/clock"
	"github.com/allisson/sentinel/internal/database"
	apperrors "github.com/allisson/sentinel/internal/errors"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

// rotationManager serializes writers behind mu so a reader never observes a type
// between "previous deprecated" and "successor active".
type rotationManager struct {
	mu          sync.RWMutex
	repo        SecretRepository
	txManager   database.TxManager
	generator   secretService.Generator
	clock       clock.Clock
	policy      secretDomain.RotationPolicy
	config      Config
	logger      *slog.Logger
	auditMu     sync.RWMutex
	auditLogger AuditLogger
}

// NewRotationManager creates a RotationManager.
func NewRotationManager(
	repo SecretRepository,
	txManager database.TxManager,
	generator secretService.Generator,
	clk clock.Clock,
	config Config,
	logger *slog.Logger,
) RotationManager {
	return &rotationManager{
		repo:      repo,
		txManager: txManager,
		generator: generator,
		clock:     clk,
		policy: secretDomain.RotationPolicy{
			Interval:              config.RotationInterval,
			NotificationThreshold: config.NotificationThreshold,
		},
		config: config,
		logger: logger,
	}
}

// SetAuditLogger attaches the audit logger.
func (m *rotationManager) SetAuditLogger(auditLogger AuditLogger) {
	m.auditMu.Lock()
	defer m.auditMu.Unlock()
	m.auditLogger = auditLogger
}

// Load stores initial values and provisions missing types.
func (m *rotationManager) Load(ctx context.Context, initial map[secretDomain.SecretType][]byte) error {
	for secretType := range initial {
		if !secretType.IsValid() {
			return apperrors.Wrapf(secretDomain.ErrInvalidSecretType, "%s", secretType)
		}
	}

	results := make([]*secretDomain.RotationResult, 0)

	m.mu.Lock()
	for _, secretType := range secretDomain.SecretTypes {
		versions, err := m.repo.ListByType(ctx, secretType)
		if err != nil {
			m.mu.Unlock()
			return apperrors.Wrap(err, "failed to list secrets")
		}

		active := findActive(versions)
		value, provided := initial[secretType]

		switch {
		case active != nil && provided && active.Checksum != secretDomain.Checksum(value):
			// A durable store already holds a newer rotation; the configured value is stale.
			m.logger.Info("keeping stored active secret over configured value",
				slog.String("secret_id", active.ID))
			continue
		case active != nil:
			continue
		}

		reason := "initial provisioning"
		if provided {
			reason = "configured initial value"
			if err := secretDomain.ValidateValue(secretType, value); err != nil {
				m.mu.Unlock()
				return err
			}
		}

		result, err := m.rotateLocked(ctx, secretType, versions, value, reason)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		results = append(results, result)
	}
	m.mu.Unlock()

	for _, result := range results {
		m.logger.Info("secret provisioned",
			slog.String("secret_id", result.NewSecretID),
			slog.String("reason", result.Reason))
		m.recordRotation(ctx, result, "provision")
	}
	return nil
}

// GetActive returns the active secret of a type and records its use.
func (m *rotationManager) GetActive(
	ctx context.Context,
	secretType secretDomain.SecretType,
) (*secretDomain.Secret, error) {
	if !secretType.IsValid() {
		return nil, secretDomain.ErrInvalidSecretType
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, err := m.repo.ListByType(ctx, secretType)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	active := findActive(versions)
	if active == nil {
		return nil, secretDomain.ErrNoActiveSecret
	}

	now := m.clock.Now()
	if err := m.repo.IncrementUsage(ctx, active.ID, now); err != nil {
		return nil, apperrors.Wrap(err, "failed to record secret usage")
	}
	active.UseCount++
	active.LastUsedAt = &now

	return active, nil
}

// GetByVersion returns a version that is still acceptable for verification.
func (m *rotationManager) GetByVersion(ctx context.Context, id string) (*secretDomain.Secret, error) {
	if _, _, err := secretDomain.ParseSecretID(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	secret, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !secret.IsAcceptable(m.clock.Now()) {
		return nil, apperrors.Wrapf(secretDomain.ErrSecretNotFound, "%s is no longer acceptable", id)
	}
	return secret, nil
}

// Lookup returns any stored version.
func (m *rotationManager) Lookup(ctx context.Context, id string) (*secretDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.repo.Get(ctx, id)
}

// Acceptable returns the versions of a type that may verify a signature now.
func (m *rotationManager) Acceptable(
	ctx context.Context,
	secretType secretDomain.SecretType,
) ([]*secretDomain.Secret, error) {
	if !secretType.IsValid() {
		return nil, secretDomain.ErrInvalidSecretType
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, err := m.repo.ListByType(ctx, secretType)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	now := m.clock.Now()
	acceptable := make([]*secretDomain.Secret, 0, len(versions))
	for _, secret := range versions {
		if secret.IsAcceptable(now) {
			acceptable = append(acceptable, secret)
		}
	}

	sort.SliceStable(acceptable, func(i, j int) bool {
		return acceptable[i].Status == secretDomain.StatusActive &&
			acceptable[j].Status != secretDomain.StatusActive
	})

	if len(acceptable) == 0 {
		return nil, secretDomain.ErrNoActiveSecret
	}
	return acceptable, nil
}

// RecordUsage bumps the usage counter of a version.
func (m *rotationManager) RecordUsage(ctx context.Context, id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.repo.IncrementUsage(ctx, id, m.clock.Now())
}

// NeedsRotation grades how urgently a type needs rotating.
func (m *rotationManager) NeedsRotation(
	ctx context.Context,
	secretType secretDomain.SecretType,
) (*secretDomain.RotationNeed, error) {
	if !secretType.IsValid() {
		return nil, secretDomain.ErrInvalidSecretType
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	versions, err := m.repo.ListByType(ctx, secretType)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	need := m.policy.Evaluate(secretType, findActive(versions), m.clock.Now())
	return &need, nil
}

// Rotate generates a new version and deprecates the previous active one.
func (m *rotationManager) Rotate(
	ctx context.Context,
	secretType secretDomain.SecretType,
	reason string,
) (*secretDomain.RotationResult, error) {
	if !secretType.IsValid() {
		return nil, secretDomain.ErrInvalidSecretType
	}

	result, err := m.rotate(ctx, secretType, reason)
	if err != nil {
		m.logger.Error("secret rotation failed",
			slog.String("type", string(secretType)),
			slog.String("reason", reason),
			slog.Any("error", err))
		m.recordRotationFailure(ctx, secretType, reason, err)
		return nil, err
	}

	m.logger.Info("secret rotated",
		slog.String("secret_id", result.NewSecretID),
		slog.String("previous_id", result.PreviousID),
		slog.String("reason", reason))
	m.recordRotation(ctx, result, "rotate")
	return result, nil
}

// rotate holds the write lock only while the store changes; audit events are logged
// after release because flushing may read the audit key through this manager.
func (m *rotationManager) rotate(
	ctx context.Context,
	secretType secretDomain.SecretType,
	reason string,
) (*secretDomain.RotationResult, error) {
	value, err := m.generator.Generate(secretType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", secretDomain.ErrRotationFailed, err)
	}
	if err := secretDomain.ValidateValue(secretType, value); err != nil {
		return nil, fmt.Errorf("%w: %w", secretDomain.ErrRotationFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	versions, err := m.repo.ListByType(ctx, secretType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", secretDomain.ErrRotationFailed, err)
	}

	return m.rotateLocked(ctx, secretType, versions, value, reason)
}

// rotateLocked must be called with mu held for writing.
func (m *rotationManager) rotateLocked(
	ctx context.Context,
	secretType secretDomain.SecretType,
	versions []*secretDomain.Secret,
	value []byte,
	reason string,
) (*secretDomain.RotationResult, error) {
	if value == nil {
		generated, err := m.generator.Generate(secretType)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", secretDomain.ErrRotationFailed, err)
		}
		if err := secretDomain.ValidateValue(secretType, generated); err != nil {
			return nil, fmt.Errorf("%w: %w", secretDomain.ErrRotationFailed, err)
		}
		value = generated
	}

	nextVersion := 1
	if len(versions) > 0 {
		nextVersion = versions[0].Version + 1
	}

	now := m.clock.Now()
	next := secretDomain.NewSecret(secretType, nextVersion, value, now, m.config.RotationInterval)
	previous := findActive(versions)

	result := &secretDomain.RotationResult{
		Type:          secretType,
		NewVersion:    next.Version,
		NewSecretID:   next.ID,
		RotatedAt:     now,
		Reason:        reason,
		WasFirstIssue: previous == nil,
	}

	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		if previous == nil {
			return m.repo.Create(ctx, next)
		}

		snapshot := previous.Clone()
		if err := previous.TransitionTo(secretDomain.StatusDeprecated, now, m.config.GracePeriod); err != nil {
			return err
		}
		if err := m.repo.Update(ctx, previous); err != nil {
			return err
		}
		if err := m.repo.Create(ctx, next); err != nil {
			// Stores without transactions keep the deprecation; put the previous
			// version back so the type is never left without an active secret.
			if restoreErr := m.repo.Update(ctx, snapshot); restoreErr != nil {
				return apperrors.Join(err, restoreErr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", secretDomain.ErrRotationFailed, err)
	}

	if previous != nil {
		result.PreviousID = previous.ID
		result.GraceUntil = previous.GraceUntil
	}
	return result, nil
}

// RunRotationCycle rotates every type that needs it, most urgent first. A failure
// on one type does not stop the others; failures are retried on the next cycle.
func (m *rotationManager) RunRotationCycle(ctx context.Context) ([]*secretDomain.RotationResult, error) {
	needs := make([]*secretDomain.RotationNeed, 0, len(secretDomain.SecretTypes))
	for _, secretType := range secretDomain.SecretTypes {
		need, err := m.NeedsRotation(ctx, secretType)
		if err != nil {
			return nil, err
		}
		if need.Needed {
			needs = append(needs, need)
		}
	}

	sort.SliceStable(needs, func(i, j int) bool {
		return needs[i].Urgency.Rank() > needs[j].Urgency.Rank()
	})

	results := make([]*secretDomain.RotationResult, 0, len(needs))
	var errs []error
	for _, need := range needs {
		result, err := m.Rotate(ctx, need.Type, fmt.Sprintf("%s urgency: %s", need.Urgency, need.Reason))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}

	return results, apperrors.Join(errs...)
}

// HealthCheck re-validates every stored secret and persists the health flag.
func (m *rotationManager) HealthCheck(ctx context.Context) (*secretDomain.HealthReport, error) {
	m.mu.Lock()

	secrets, err := m.repo.List(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	now := m.clock.Now()
	report := &secretDomain.HealthReport{CheckedAt: now, Issues: make([]secretDomain.HealthIssue, 0)}

	for _, secret := range secrets {
		if secret.Status == secretDomain.StatusRevoked {
			continue
		}

		problems := make([]string, 0, 2)
		if !secret.ChecksumMatches() {
			problems = append(problems, "checksum mismatch")
		}
		if err := secretDomain.ValidateValue(secret.Type, secret.Value); err != nil {
			problems = append(problems, err.Error())
		}

		secret.Healthy = len(problems) == 0
		secret.LastHealthCheckAt = &now
		if err := m.repo.Update(ctx, secret); err != nil {
			m.mu.Unlock()
			return nil, apperrors.Wrap(err, "failed to update secret health")
		}

		if secret.Healthy {
			report.HealthyCount++
			continue
		}
		report.UnhealthyCount++
		for _, problem := range problems {
			report.Issues = append(report.Issues, secretDomain.HealthIssue{SecretID: secret.ID, Problem: problem})
		}
	}
	m.mu.Unlock()

	if report.UnhealthyCount > 0 {
		m.logger.Warn("unhealthy secrets detected",
			slog.Int("unhealthy", report.UnhealthyCount),
			slog.Int("healthy", report.HealthyCount))

		ids := make([]string, 0, len(report.Issues))
		for _, issue := range report.Issues {
			ids = append(ids, issue.SecretID)
		}
		m.logAudit(ctx, auditDomain.EventInput{
			Category:         auditDomain.CategorySuspiciousActivity,
			Action:           "secret_health_check",
			Outcome:          auditDomain.OutcomeWarning,
			Message:          "secret health check found unhealthy versions",
			Details:          map[string]any{"secret_ids": ids, "unhealthy_count": report.UnhealthyCount},
			ThreatIndicators: []string{"secret_integrity"},
		})
	}

	return report, nil
}

// Cleanup revokes deprecated versions whose grace elapsed and evicts revoked versions
// older than the retention period. Revoked audit keys are never evicted: entries they
// signed must stay verifiable.
func (m *rotationManager) Cleanup(ctx context.Context) (*CleanupResult, error) {
	m.mu.Lock()

	secrets, err := m.repo.List(ctx)
	if err != nil {
		m.mu.Unlock()
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	now := m.clock.Now()
	result := &CleanupResult{Revoked: make([]string, 0), Evicted: make([]string, 0)}

	for _, secret := range secrets {
		switch secret.Status {
		case secretDomain.StatusDeprecated:
			if secret.IsAcceptable(now) {
				continue
			}
			if err := secret.TransitionTo(secretDomain.StatusRevoked, now, 0); err != nil {
				m.mu.Unlock()
				return nil, err
			}
			if err := m.repo.Update(ctx, secret); err != nil {
				m.mu.Unlock()
				return nil, apperrors.Wrap(err, "failed to revoke secret")
			}
			result.Revoked = append(result.Revoked, secret.ID)
		case secretDomain.StatusRevoked:
			if secret.Type == secretDomain.AuditKey {
				continue
			}
			if secret.RevokedAt == nil || now.Sub(*secret.RevokedAt) < m.config.RevokedRetention {
				continue
			}
			if err := m.repo.Delete(ctx, secret.ID); err != nil {
				m.mu.Unlock()
				return nil, apperrors.Wrap(err, "failed to evict secret")
			}
			result.Evicted = append(result.Evicted, secret.ID)
		}
	}
	m.mu.Unlock()

	for _, id := range result.Revoked {
		m.logger.Info("secret revoked", slog.String("secret_id", id))
		m.logAudit(ctx, auditDomain.EventInput{
			Category: auditDomain.CategorySecretRotation,
			Action:   "revoke",
			Outcome:  auditDomain.OutcomeSuccess,
			Message:  "deprecated secret revoked after grace period",
			Details:  map[string]any{"secret_id": id},
		})
	}
	for _, id := range result.Evicted {
		m.logger.Debug("revoked secret evicted", slog.String("secret_id", id))
	}

	return result, nil
}

// List returns value-free views of every stored secret.
func (m *rotationManager) List(ctx context.Context) ([]secretDomain.SecretStatusView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secrets, err := m.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	views := make([]secretDomain.SecretStatusView, 0, len(secrets))
	for _, secret := range secrets {
		views = append(views, secret.View())
	}
	return views, nil
}

func (m *rotationManager) recordRotation(ctx context.Context, result *secretDomain.RotationResult, action string) {
	details := map[string]any{
		"secret_id":   result.NewSecretID,
		"new_version": result.NewVersion,
		"reason":      result.Reason,
	}
	if result.PreviousID != "" {
		details["previous_id"] = result.PreviousID
	}
	if result.GraceUntil != nil {
		details["grace_until"] = result.GraceUntil.Format(time.RFC3339)
	}

	m.logAudit(ctx, auditDomain.EventInput{
		Category: auditDomain.CategorySecretRotation,
		Action:   action,
		Outcome:  auditDomain.OutcomeSuccess,
		Message:  fmt.Sprintf("%s secret rotated to version %d", result.Type, result.NewVersion),
		Details:  details,
	})
}

func (m *rotationManager) recordRotationFailure(
	ctx context.Context,
	secretType secretDomain.SecretType,
	reason string,
	rotationErr error,
) {
	m.logAudit(ctx, auditDomain.EventInput{
		Category: auditDomain.CategorySecretRotation,
		Action:   "rotate",
		Outcome:  auditDomain.OutcomeFailure,
		Message:  fmt.Sprintf("%s secret rotation failed", secretType),
		Details: map[string]any{
			"type":   string(secretType),
			"reason": reason,
			"error":  rotationErr.Error(),
		},
	})
}

func (m *rotationManager) logAudit(ctx context.Context, input auditDomain.EventInput) {
	m.auditMu.RLock()
	auditLogger := m.auditLogger
	m.auditMu.RUnlock()

	if auditLogger == nil {
		return
	}
	if _, err := auditLogger.LogEvent(ctx, input); err != nil {
		m.logger.Warn("failed to record audit event",
			slog.String("action", input.Action),
			slog.Any("error", err))
	}
}

func findActive(versions []*secretDomain.Secret) *secretDomain.Secret {
	for _, secret := range versions {
		if secret.Status == secretDomain.StatusActive {
			return secret
		}
	}
	return nil
}
