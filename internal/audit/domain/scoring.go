package domain

var categoryBaseScore = map[Category]int{
	CategoryAuthentication:        10,
	CategoryAuthorization:         15,
	CategorySignatureVerification: 20,
	CategoryReplayAttempt:         40,
	CategoryInjectionAttempt:      50,
	CategoryRateLimit:             15,
	CategorySecretRotation:        20,
	CategorySecretAccess:          10,
	CategoryConfigurationChange:   25,
	CategorySuspiciousActivity:    35,
	CategorySystemError:           15,
	CategoryDataAccess:            5,
	CategoryAlert:                 30,
}

var outcomeModifier = map[Outcome]int{
	OutcomeSuccess: 0,
	OutcomeWarning: 10,
	OutcomeFailure: 20,
	OutcomeBlocked: 30,
}

var severityModifier = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   10,
	SeverityHigh:     20,
	SeverityCritical: 35,
}

type severityKey struct {
	category Category
	outcome  Outcome
}

// severityOverrides pins the severity of specific (category, outcome) pairs.
var severityOverrides = map[severityKey]Severity{
	{CategoryInjectionAttempt, OutcomeBlocked}:      SeverityCritical,
	{CategoryInjectionAttempt, OutcomeFailure}:      SeverityCritical,
	{CategoryInjectionAttempt, OutcomeWarning}:      SeverityHigh,
	{CategoryReplayAttempt, OutcomeBlocked}:         SeverityHigh,
	{CategoryReplayAttempt, OutcomeFailure}:         SeverityHigh,
	{CategorySignatureVerification, OutcomeFailure}: SeverityMedium,
	{CategorySignatureVerification, OutcomeBlocked}: SeverityHigh,
	{CategorySecretRotation, OutcomeSuccess}:        SeverityMedium,
	{CategorySecretRotation, OutcomeFailure}:        SeverityHigh,
	{CategorySystemError, OutcomeFailure}:           SeverityHigh,
	{CategorySuspiciousActivity, OutcomeWarning}:    SeverityMedium,
	{CategorySuspiciousActivity, OutcomeBlocked}:    SeverityHigh,
	{CategoryAlert, OutcomeSuccess}:                 SeverityHigh,
	{CategoryAlert, OutcomeWarning}:                 SeverityHigh,
	{CategoryAlert, OutcomeFailure}:                 SeverityHigh,
	{CategoryAlert, OutcomeBlocked}:                 SeverityHigh,
}

var defaultSeverity = map[Outcome]Severity{
	OutcomeSuccess: SeverityLow,
	OutcomeWarning: SeverityMedium,
	OutcomeFailure: SeverityMedium,
	OutcomeBlocked: SeverityHigh,
}

// DeriveSeverity looks up the severity of a (category, outcome) pair.
func DeriveSeverity(category Category, outcome Outcome) Severity {
	if severity, ok := severityOverrides[severityKey{category, outcome}]; ok {
		return severity
	}
	if severity, ok := defaultSeverity[outcome]; ok {
		return severity
	}
	return SeverityMedium
}

// RiskScore sums the category base, outcome and severity modifiers, clamped to [0, 100].
func RiskScore(category Category, outcome Outcome, severity Severity) int {
	score := categoryBaseScore[category] + outcomeModifier[outcome] + severityModifier[severity]
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
