// Package domain defines the secret lifecycle model: versioned secrets per type,
// their monotonic status machine and the rotation-need policy.
package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Secret is one version of one secret type.
type Secret struct {
	ID                string // "<type>:v<version>"
	Type              SecretType
	Version           int
	Value             []byte // never logged
	Checksum          string // hex SHA-256 of Value taken at creation
	Status            Status
	Healthy           bool
	UseCount          int64
	LastUsedAt        *time.Time
	LastHealthCheckAt *time.Time
	CreatedAt         time.Time
	ExpiresAt         time.Time
	DeprecatedAt      *time.Time
	GraceUntil        *time.Time
	RevokedAt         *time.Time
}

// NewSecret builds an active, healthy secret version with its integrity checksum.
func NewSecret(secretType SecretType, version int, value []byte, now time.Time, lifetime time.Duration) *Secret {
	return &Secret{
		ID:        SecretID(secretType, version),
		Type:      secretType,
		Version:   version,
		Value:     value,
		Checksum:  Checksum(value),
		Status:    StatusActive,
		Healthy:   true,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
}

// SecretID composes the identifier of a secret version.
func SecretID(secretType SecretType, version int) string {
	return fmt.Sprintf("%s:v%d", secretType, version)
}

// ParseSecretID splits "<type>:v<version>" into its parts.
func ParseSecretID(id string) (SecretType, int, error) {
	typePart, versionPart, ok := strings.Cut(id, ":v")
	if !ok {
		return "", 0, ErrInvalidSecretID
	}
	secretType := SecretType(typePart)
	if !secretType.IsValid() {
		return "", 0, ErrInvalidSecretID
	}
	version, err := strconv.Atoi(versionPart)
	if err != nil || version < 1 {
		return "", 0, ErrInvalidSecretID
	}
	return secretType, version, nil
}

// Checksum returns the hex SHA-256 digest of a secret value.
func Checksum(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}

// ChecksumMatches recomputes the checksum and compares it in constant time.
func (s *Secret) ChecksumMatches() bool {
	return subtle.ConstantTimeCompare([]byte(Checksum(s.Value)), []byte(s.Checksum)) == 1
}

// TransitionTo moves the secret to next, refusing backward or repeated transitions.
func (s *Secret) TransitionTo(next Status, now time.Time, gracePeriod time.Duration) error {
	if !s.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s.Status, next)
	}

	switch next {
	case StatusDeprecated:
		graceUntil := now.Add(gracePeriod)
		s.DeprecatedAt = &now
		s.GraceUntil = &graceUntil
	case StatusRevoked:
		s.RevokedAt = &now
	}
	s.Status = next
	return nil
}

// IsAcceptable reports whether the secret may be used to verify a signature at now.
// Active secrets are always acceptable; deprecated ones only inside their grace period.
func (s *Secret) IsAcceptable(now time.Time) bool {
	switch s.Status {
	case StatusActive:
		return true
	case StatusDeprecated:
		return s.GraceUntil != nil && now.Before(*s.GraceUntil)
	default:
		return false
	}
}

// IsExpired reports whether the secret's lifetime has elapsed.
func (s *Secret) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Clone returns a deep copy safe to hand out to readers.
func (s *Secret) Clone() *Secret {
	c := *s
	c.Value = append([]byte(nil), s.Value...)
	c.LastUsedAt = cloneTime(s.LastUsedAt)
	c.LastHealthCheckAt = cloneTime(s.LastHealthCheckAt)
	c.DeprecatedAt = cloneTime(s.DeprecatedAt)
	c.GraceUntil = cloneTime(s.GraceUntil)
	c.RevokedAt = cloneTime(s.RevokedAt)
	return &c
}

// LogValue implements slog.LogValuer so the secret value never reaches logs.
func (s *Secret) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", s.ID),
		slog.String("status", string(s.Status)),
		slog.Bool("healthy", s.Healthy),
		slog.Time("expires_at", s.ExpiresAt),
	)
}

// String redacts the value for fmt verbs.
func (s *Secret) String() string {
	return fmt.Sprintf("Secret{id=%s status=%s value=[REDACTED]}", s.ID, s.Status)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
