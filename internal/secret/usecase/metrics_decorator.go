package usecase

import (
	"context"
	"time"

	"github.com/allisson/sentinel/internal/metrics"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

// rotationManagerWithMetrics decorates RotationManager with metrics instrumentation.
// Hot-path reads (GetActive, Acceptable) are counted but not timed.
type rotationManagerWithMetrics struct {
	next    RotationManager
	metrics metrics.BusinessMetrics
}

// NewRotationManagerWithMetrics wraps a RotationManager with metrics recording.
func NewRotationManagerWithMetrics(manager RotationManager, m metrics.BusinessMetrics) RotationManager {
	return &rotationManagerWithMetrics{
		next:    manager,
		metrics: m,
	}
}

func (r *rotationManagerWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := statusOf(err)
	r.metrics.RecordOperation(ctx, "secret", operation, status)
	r.metrics.RecordDuration(ctx, "secret", operation, time.Since(start), status)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Load records metrics for initial secret loading.
func (r *rotationManagerWithMetrics) Load(ctx context.Context, initial map[secretDomain.SecretType][]byte) error {
	start := time.Now()
	err := r.next.Load(ctx, initial)
	r.record(ctx, "secret_load", start, err)
	return err
}

// GetActive counts active secret reads.
func (r *rotationManagerWithMetrics) GetActive(
	ctx context.Context,
	secretType secretDomain.SecretType,
) (*secretDomain.Secret, error) {
	secret, err := r.next.GetActive(ctx, secretType)
	r.metrics.RecordOperation(ctx, "secret", "secret_get_active", statusOf(err))
	return secret, err
}

// GetByVersion delegates without instrumentation.
func (r *rotationManagerWithMetrics) GetByVersion(ctx context.Context, id string) (*secretDomain.Secret, error) {
	return r.next.GetByVersion(ctx, id)
}

// Lookup delegates without instrumentation.
func (r *rotationManagerWithMetrics) Lookup(ctx context.Context, id string) (*secretDomain.Secret, error) {
	return r.next.Lookup(ctx, id)
}

// Acceptable counts acceptable-set reads.
func (r *rotationManagerWithMetrics) Acceptable(
	ctx context.Context,
	secretType secretDomain.SecretType,
) ([]*secretDomain.Secret, error) {
	secrets, err := r.next.Acceptable(ctx, secretType)
	r.metrics.RecordOperation(ctx, "secret", "secret_acceptable", statusOf(err))
	return secrets, err
}

// RecordUsage delegates without instrumentation.
func (r *rotationManagerWithMetrics) RecordUsage(ctx context.Context, id string) error {
	return r.next.RecordUsage(ctx, id)
}

// NeedsRotation delegates without instrumentation.
func (r *rotationManagerWithMetrics) NeedsRotation(
	ctx context.Context,
	secretType secretDomain.SecretType,
) (*secretDomain.RotationNeed, error) {
	return r.next.NeedsRotation(ctx, secretType)
}

// Rotate records metrics for rotations.
func (r *rotationManagerWithMetrics) Rotate(
	ctx context.Context,
	secretType secretDomain.SecretType,
	reason string,
) (*secretDomain.RotationResult, error) {
	start := time.Now()
	result, err := r.next.Rotate(ctx, secretType, reason)
	r.record(ctx, "secret_rotate", start, err)
	return result, err
}

// RunRotationCycle records metrics for scheduled rotation cycles.
func (r *rotationManagerWithMetrics) RunRotationCycle(ctx context.Context) ([]*secretDomain.RotationResult, error) {
	start := time.Now()
	results, err := r.next.RunRotationCycle(ctx)
	r.record(ctx, "secret_rotation_cycle", start, err)
	return results, err
}

// HealthCheck records metrics for health checks.
func (r *rotationManagerWithMetrics) HealthCheck(ctx context.Context) (*secretDomain.HealthReport, error) {
	start := time.Now()
	report, err := r.next.HealthCheck(ctx)
	r.record(ctx, "secret_health_check", start, err)
	return report, err
}

// Cleanup records metrics for cleanup passes.
func (r *rotationManagerWithMetrics) Cleanup(ctx context.Context) (*CleanupResult, error) {
	start := time.Now()
	result, err := r.next.Cleanup(ctx)
	r.record(ctx, "secret_cleanup", start, err)
	return result, err
}

// List delegates without instrumentation.
func (r *rotationManagerWithMetrics) List(ctx context.Context) ([]secretDomain.SecretStatusView, error) {
	return r.next.List(ctx)
}

// SetAuditLogger forwards to the wrapped manager.
func (r *rotationManagerWithMetrics) SetAuditLogger(auditLogger AuditLogger) {
	r.next.SetAuditLogger(auditLogger)
}
