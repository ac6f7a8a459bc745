package domain

// Category groups audit events by the security concern they describe.
type Category string

const (
	CategoryAuthentication        Category = "authentication"
	CategoryAuthorization         Category = "authorization"
	CategorySignatureVerification Category = "signature_verification"
	CategoryReplayAttempt         Category = "replay_attempt"
	CategoryInjectionAttempt      Category = "injection_attempt"
	CategoryRateLimit             Category = "rate_limit"
	CategorySecretRotation        Category = "secret_rotation"
	CategorySecretAccess          Category = "secret_access"
	CategoryConfigurationChange   Category = "configuration_change"
	CategorySuspiciousActivity    Category = "suspicious_activity"
	CategorySystemError           Category = "system_error"
	CategoryDataAccess            Category = "data_access"
	// CategoryAlert is emitted by the logger itself when a threshold is crossed.
	CategoryAlert Category = "alert"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryAuthentication,
	CategoryAuthorization,
	CategorySignatureVerification,
	CategoryReplayAttempt,
	CategoryInjectionAttempt,
	CategoryRateLimit,
	CategorySecretRotation,
	CategorySecretAccess,
	CategoryConfigurationChange,
	CategorySuspiciousActivity,
	CategorySystemError,
	CategoryDataAccess,
	CategoryAlert,
}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	_, ok := categoryBaseScore[c]
	return ok
}

// IsUrgent reports whether events of this category are flushed immediately.
func (c Category) IsUrgent() bool {
	switch c {
	case CategoryInjectionAttempt, CategoryReplayAttempt, CategorySuspiciousActivity, CategoryAlert:
		return true
	}
	return false
}

// Severity grades the impact of an event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	_, ok := severityModifier[s]
	return ok
}

// Outcome is the result of the action an event describes.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked"
)

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	_, ok := outcomeModifier[o]
	return ok
}

// GenesisHash is the previous hash of the first entry in a chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"
