// Package usecase implements the secret rotation manager: it owns every secret version,
// decides when rotation is due and rolls keys over without leaving a type without an
// active secret.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

// SecretRepository defines persistence operations for secret versions.
// Implementations must support transaction-aware operations via context propagation.
type SecretRepository interface {
	// Create stores a new secret version. Returns ErrConflict if the id exists.
	Create(ctx context.Context, secret *secretDomain.Secret) error

	// Update writes the lifecycle fields of an existing secret.
	Update(ctx context.Context, secret *secretDomain.Secret) error

	// Get retrieves a secret by id. Returns ErrSecretNotFound if not found.
	Get(ctx context.Context, id string) (*secretDomain.Secret, error)

	// ListByType returns every stored version of a type, newest first.
	ListByType(ctx context.Context, secretType secretDomain.SecretType) ([]*secretDomain.Secret, error)

	// List returns every stored secret.
	List(ctx context.Context) ([]*secretDomain.Secret, error)

	// Delete evicts a secret.
	Delete(ctx context.Context, id string) error

	// IncrementUsage bumps the usage counter and last-used timestamp.
	IncrementUsage(ctx context.Context, id string, usedAt time.Time) error
}

// AuditLogger receives the security events produced by secret lifecycle operations.
type AuditLogger interface {
	LogEvent(ctx context.Context, input auditDomain.EventInput) (*auditDomain.Event, error)
}

// RotationManager owns the lifecycle of every secret version.
type RotationManager interface {
	// Load stores the configured initial values and provisions a random value for every
	// type that still has no active secret.
	Load(ctx context.Context, initial map[secretDomain.SecretType][]byte) error

	// GetActive returns the active secret of a type and records its use.
	// Returns ErrNoActiveSecret if the type has none.
	GetActive(ctx context.Context, secretType secretDomain.SecretType) (*secretDomain.Secret, error)

	// GetByVersion returns a secret version that is still acceptable for verification
	// (active, or deprecated inside its grace period).
	GetByVersion(ctx context.Context, id string) (*secretDomain.Secret, error)

	// Lookup returns any stored version regardless of status. Used to verify old audit
	// entries signed with keys that have since been revoked but not yet evicted.
	Lookup(ctx context.Context, id string) (*secretDomain.Secret, error)

	// Acceptable returns every version of a type that may verify a signature now,
	// the active version first.
	Acceptable(ctx context.Context, secretType secretDomain.SecretType) ([]*secretDomain.Secret, error)

	// RecordUsage bumps the usage counter of a version matched during verification.
	RecordUsage(ctx context.Context, id string) error

	// NeedsRotation grades how urgently a type needs rotating.
	NeedsRotation(ctx context.Context, secretType secretDomain.SecretType) (*secretDomain.RotationNeed, error)

	// Rotate promotes a freshly generated version to active and deprecates the previous
	// one. A failed rotation leaves the previous active version untouched.
	Rotate(
		ctx context.Context,
		secretType secretDomain.SecretType,
		reason string,
	) (*secretDomain.RotationResult, error)

	// RunRotationCycle rotates every type that needs it, most urgent first.
	RunRotationCycle(ctx context.Context) ([]*secretDomain.RotationResult, error)

	// HealthCheck re-validates the format and checksum of every stored secret.
	HealthCheck(ctx context.Context) (*secretDomain.HealthReport, error)

	// Cleanup revokes deprecated versions past their grace period and evicts revoked
	// versions past the retention period.
	Cleanup(ctx context.Context) (*CleanupResult, error)

	// List returns value-free views of every stored secret.
	List(ctx context.Context) ([]secretDomain.SecretStatusView, error)

	// SetAuditLogger attaches the audit logger. The logger itself depends on this
	// manager for its signing key, so it is attached after construction.
	SetAuditLogger(auditLogger AuditLogger)
}

// CleanupResult reports what a cleanup pass changed.
type CleanupResult struct {
	Revoked []string
	Evicted []string
}

// Config holds the rotation timings.
type Config struct {
	RotationInterval      time.Duration
	GracePeriod           time.Duration
	NotificationThreshold time.Duration
	RevokedRetention      time.Duration
}
