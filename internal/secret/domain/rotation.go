package domain

import "time"

// RotationNeed is the outcome of evaluating a secret type against the rotation policy.
type RotationNeed struct {
	Type    SecretType
	Needed  bool
	Urgency Urgency
	Reason  string
}

// RotationPolicy holds the thresholds of the graduated rotation policy.
type RotationPolicy struct {
	Interval              time.Duration
	NotificationThreshold time.Duration
}

// Evaluate grades the need to rotate a type given its active secret (nil when none).
//
// Critical: no active secret, or it has expired.
// High: expiry is within the notification threshold.
// Medium: the last health check failed.
// Low: 80% of the rotation interval has elapsed.
func (p RotationPolicy) Evaluate(secretType SecretType, active *Secret, now time.Time) RotationNeed {
	need := RotationNeed{Type: secretType, Urgency: UrgencyNone}

	switch {
	case active == nil:
		need.Needed, need.Urgency, need.Reason = true, UrgencyCritical, "no active secret"
	case active.IsExpired(now):
		need.Needed, need.Urgency, need.Reason = true, UrgencyCritical, "active secret expired"
	case active.ExpiresAt.Sub(now) <= p.NotificationThreshold:
		need.Needed, need.Urgency, need.Reason = true, UrgencyHigh, "active secret expires soon"
	case !active.Healthy:
		need.Needed, need.Urgency, need.Reason = true, UrgencyMedium, "active secret failed health check"
	case now.Sub(active.CreatedAt) >= p.Interval*8/10:
		need.Needed, need.Urgency, need.Reason = true, UrgencyLow, "80% of rotation interval elapsed"
	}

	return need
}

// HealthIssue describes a secret that failed a health check.
type HealthIssue struct {
	SecretID string
	Problem  string
}

// HealthReport summarizes a health check pass over every stored secret.
type HealthReport struct {
	HealthyCount   int
	UnhealthyCount int
	Issues         []HealthIssue
	CheckedAt      time.Time
}

// RotationResult describes a successful rotation.
type RotationResult struct {
	Type          SecretType
	NewVersion    int
	NewSecretID   string
	PreviousID    string
	GraceUntil    *time.Time
	RotatedAt     time.Time
	Reason        string
	WasFirstIssue bool
}

// SecretStatusView is the value-free projection of a secret exposed by admin endpoints.
type SecretStatusView struct {
	ID         string
	Type       SecretType
	Version    int
	Status     Status
	Healthy    bool
	UseCount   int64
	LastUsedAt *time.Time
	CreatedAt  time.Time
	ExpiresAt  time.Time
	GraceUntil *time.Time
	RevokedAt  *time.Time
}

// View strips the value from a secret.
func (s *Secret) View() SecretStatusView {
	return SecretStatusView{
		ID:         s.ID,
		Type:       s.Type,
		Version:    s.Version,
		Status:     s.Status,
		Healthy:    s.Healthy,
		UseCount:   s.UseCount,
		LastUsedAt: cloneTime(s.LastUsedAt),
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
		GraceUntil: cloneTime(s.GraceUntil),
		RevokedAt:  cloneTime(s.RevokedAt),
	}
}
