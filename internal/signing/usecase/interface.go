// Package usecase implements request signing and verification: HMAC-SHA256 over a
// canonical request string, timestamp tolerance, nonce replay protection and
// multi-version key acceptance during rotation grace periods.
package usecase

import (
	"context"
	"time"

	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
)

// NonceRepository records consumed nonces.
type NonceRepository interface {
	// Remember atomically checks and records a nonce. Returns false when the nonce is
	// already held and unexpired at now.
	Remember(ctx context.Context, entry signingDomain.NonceEntry, now time.Time) (bool, error)

	// DeleteExpired removes nonces whose window ended at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// KeyProvider exposes the signing key material owned by the rotation manager.
type KeyProvider interface {
	GetActive(ctx context.Context, secretType secretDomain.SecretType) (*secretDomain.Secret, error)
	GetByVersion(ctx context.Context, id string) (*secretDomain.Secret, error)
	Acceptable(ctx context.Context, secretType secretDomain.SecretType) ([]*secretDomain.Secret, error)
	RecordUsage(ctx context.Context, id string) error
}

// Signer signs outbound requests with the active signing key.
type Signer interface {
	Sign(ctx context.Context, input signingDomain.SignInput) (*signingDomain.SignResult, error)
}

// Verifier checks inbound request signatures. Verification never returns an error:
// every failure is reported in the result so the caller applies its own policy.
type Verifier interface {
	Verify(ctx context.Context, request *signingDomain.Request) *signingDomain.VerificationResult

	// IsSensitivePath reports whether path requires a signature.
	IsSensitivePath(path string) bool

	// CleanupNonces drops nonces that left the window. Returns the number removed.
	CleanupNonces(ctx context.Context) (int64, error)
}

// Config holds verification tolerances.
type Config struct {
	TimestampTolerance       time.Duration
	StrictTimestampTolerance time.Duration
	NonceWindow              time.Duration
	Mode                     signingDomain.EnforcementMode
	SensitivePaths           []string
}

// EffectiveTolerance returns the tolerance for the configured mode. Strict mode uses
// the tighter of the two tolerances.
func (c Config) EffectiveTolerance() time.Duration {
	if c.Mode == signingDomain.EnforcementStrict && c.StrictTimestampTolerance > 0 &&
		c.StrictTimestampTolerance < c.TimestampTolerance {
		return c.StrictTimestampTolerance
	}
	return c.TimestampTolerance
}
