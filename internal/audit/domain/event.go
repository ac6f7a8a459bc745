// Package domain defines audit events, their hash-chained log entries and the fixed
// severity and risk-score tables.
package domain

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
)

// Actor identifies who triggered an event.
type Actor struct {
	IP        string `json:"ip"`
	UserID    string `json:"user_id,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Event is a single immutable security record.
type Event struct {
	ID               uuid.UUID      `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	Category         Category       `json:"category"`
	Action           string         `json:"action"`
	Severity         Severity       `json:"severity"`
	Outcome          Outcome        `json:"outcome"`
	Actor            Actor          `json:"actor"`
	RequestID        string         `json:"request_id,omitempty"`
	Message          string         `json:"message"`
	Details          map[string]any `json:"details,omitempty"`
	RiskScore        int            `json:"risk_score"`
	ThreatIndicators []string       `json:"threat_indicators,omitempty"`
}

// EventInput carries the caller-supplied part of an event. Severity is optional;
// when empty it is derived from Category and Outcome.
type EventInput struct {
	Category         Category
	Action           string
	Outcome          Outcome
	Severity         Severity
	Actor            Actor
	RequestID        string
	Message          string
	Details          map[string]any
	ThreatIndicators []string
}

// Validate checks the enumerations and required fields of the input.
func (i EventInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Category,
			validation.Required,
			validation.By(func(value interface{}) error {
				if !value.(Category).IsValid() {
					return validation.NewError("validation_audit_category", "unknown category")
				}
				return nil
			}),
		),
		validation.Field(&i.Action, validation.Required, validation.Length(1, 128)),
		validation.Field(&i.Outcome,
			validation.Required,
			validation.By(func(value interface{}) error {
				if !value.(Outcome).IsValid() {
					return validation.NewError("validation_audit_outcome", "unknown outcome")
				}
				return nil
			}),
		),
		validation.Field(&i.Severity,
			validation.By(func(value interface{}) error {
				severity := value.(Severity)
				if severity != "" && !severity.IsValid() {
					return validation.NewError("validation_audit_severity", "unknown severity")
				}
				return nil
			}),
		),
	)
}

// NewEvent builds an event from input, assigning its id, timestamp, severity and
// risk score. Timestamps are truncated to microseconds so they survive SQL storage.
func NewEvent(input EventInput, now time.Time) *Event {
	severity := input.Severity
	if severity == "" {
		severity = DeriveSeverity(input.Category, input.Outcome)
	}

	return &Event{
		ID:               uuid.Must(uuid.NewV7()),
		Timestamp:        now.UTC().Truncate(time.Microsecond),
		Category:         input.Category,
		Action:           input.Action,
		Severity:         severity,
		Outcome:          input.Outcome,
		Actor:            input.Actor,
		RequestID:        input.RequestID,
		Message:          input.Message,
		Details:          input.Details,
		RiskScore:        RiskScore(input.Category, input.Outcome, severity),
		ThreatIndicators: input.ThreatIndicators,
	}
}

// IsUrgent reports whether the event must be flushed without waiting for the timer.
func (e *Event) IsUrgent() bool {
	return e.Severity == SeverityCritical || e.Category.IsUrgent()
}

// Entry is the persisted, hash-chained and signed form of an event.
type Entry struct {
	Event          Event  `json:"event"`
	SequenceNumber uint64 `json:"sequence_number"`
	PreviousHash   string `json:"previous_hash"`
	Hash           string `json:"hash"`
	Signature      string `json:"signature"`
	KeyID          string `json:"key_id"`
}

// InvalidEntry describes why an entry failed integrity verification.
type InvalidEntry struct {
	SequenceNumber uint64   `json:"sequence_number"`
	EventID        string   `json:"event_id"`
	Reasons        []string `json:"reasons"`
}

// IntegrityReport is the result of verifying a run of entries.
type IntegrityReport struct {
	IsValid        bool           `json:"is_valid"`
	ChainBroken    bool           `json:"chain_broken"`
	CheckedEntries int            `json:"checked_entries"`
	InvalidEntries []InvalidEntry `json:"invalid_entries"`
}
