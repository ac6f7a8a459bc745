package domain

// SecretType identifies what a secret is used for.
type SecretType string

const (
	// SigningKey authenticates inbound API requests (HMAC-SHA256).
	SigningKey SecretType = "signing_key"
	// AuditKey signs audit log entries.
	AuditKey SecretType = "audit_key"
	// OAuthClientSecret is the client secret shared with the OAuth provider.
	OAuthClientSecret SecretType = "oauth_client_secret"
	// EncryptionKey protects data at rest.
	EncryptionKey SecretType = "encryption_key"
)

// SecretTypes lists every managed secret type in evaluation order.
var SecretTypes = []SecretType{SigningKey, AuditKey, OAuthClientSecret, EncryptionKey}

// IsValid reports whether t is a known secret type.
func (t SecretType) IsValid() bool {
	for _, known := range SecretTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a secret version. Transitions only move forward:
// Active -> Deprecated -> Revoked.
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	StatusRevoked    Status = "revoked"
)

func (s Status) rank() int {
	switch s {
	case StatusActive:
		return 0
	case StatusDeprecated:
		return 1
	case StatusRevoked:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
func (s Status) CanTransitionTo(next Status) bool {
	from, to := s.rank(), next.rank()
	return from >= 0 && to > from
}

// Urgency grades how soon a secret type needs rotating.
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Rank orders urgencies; higher is more urgent.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyCritical:
		return 4
	default:
		return 0
	}
}
