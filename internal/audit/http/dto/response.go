package dto

import (
	"time"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
)

// AuditLogResponse is one chained entry as exposed by the API.
type AuditLogResponse struct {
	SequenceNumber   uint64         `json:"sequence_number"`
	EventID          string         `json:"event_id"`
	Timestamp        time.Time      `json:"timestamp"`
	Category         string         `json:"category"`
	Action           string         `json:"action"`
	Severity         string         `json:"severity"`
	Outcome          string         `json:"outcome"`
	ActorIP          string         `json:"actor_ip"`
	RequestID        string         `json:"request_id,omitempty"`
	Message          string         `json:"message"`
	Details          map[string]any `json:"details,omitempty"`
	RiskScore        int            `json:"risk_score"`
	ThreatIndicators []string       `json:"threat_indicators,omitempty"`
	PreviousHash     string         `json:"previous_hash"`
	Hash             string         `json:"hash"`
	Signature        string         `json:"signature"`
	KeyID            string         `json:"key_id"`
}

// ListAuditLogsResponse wraps the entry list.
type ListAuditLogsResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// MapAuditLogToResponse converts an entry to its API representation.
func MapAuditLogToResponse(entry *auditDomain.Entry) AuditLogResponse {
	return AuditLogResponse{
		SequenceNumber:   entry.SequenceNumber,
		EventID:          entry.Event.ID.String(),
		Timestamp:        entry.Event.Timestamp,
		Category:         string(entry.Event.Category),
		Action:           entry.Event.Action,
		Severity:         string(entry.Event.Severity),
		Outcome:          string(entry.Event.Outcome),
		ActorIP:          entry.Event.Actor.IP,
		RequestID:        entry.Event.RequestID,
		Message:          entry.Event.Message,
		Details:          entry.Event.Details,
		RiskScore:        entry.Event.RiskScore,
		ThreatIndicators: entry.Event.ThreatIndicators,
		PreviousHash:     entry.PreviousHash,
		Hash:             entry.Hash,
		Signature:        entry.Signature,
		KeyID:            entry.KeyID,
	}
}

// MapAuditLogsToListResponse converts entries to a list response.
func MapAuditLogsToListResponse(entries []*auditDomain.Entry) ListAuditLogsResponse {
	data := make([]AuditLogResponse, 0, len(entries))
	for _, entry := range entries {
		data = append(data, MapAuditLogToResponse(entry))
	}
	return ListAuditLogsResponse{Data: data}
}

// IntegrityReportResponse is the outcome of a verification request.
type IntegrityReportResponse struct {
	IsValid        bool                       `json:"is_valid"`
	ChainBroken    bool                       `json:"chain_broken"`
	CheckedEntries int                        `json:"checked_entries"`
	InvalidEntries []auditDomain.InvalidEntry `json:"invalid_entries"`
}

// MapIntegrityReportToResponse converts an integrity report to a response.
func MapIntegrityReportToResponse(report *auditDomain.IntegrityReport) IntegrityReportResponse {
	invalid := report.InvalidEntries
	if invalid == nil {
		invalid = []auditDomain.InvalidEntry{}
	}
	return IntegrityReportResponse{
		IsValid:        report.IsValid,
		ChainBroken:    report.ChainBroken,
		CheckedEntries: report.CheckedEntries,
		InvalidEntries: invalid,
	}
}
