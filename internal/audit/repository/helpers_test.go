package repository

import (
	"time"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
)

func newTestEntry(seq uint64) *auditDomain.Entry {
	event := auditDomain.NewEvent(auditDomain.EventInput{
		Category: auditDomain.CategorySignatureVerification,
		Action:   "verify",
		Outcome:  auditDomain.OutcomeFailure,
		Actor:    auditDomain.Actor{IP: "10.0.0.1"},
		Message:  "signature does not match",
		Details:  map[string]any{"code": "SIGNATURE_MISMATCH"},
	}, time.Date(2026, 6, 1, 9, 0, 0, 123456789, time.UTC))

	return &auditDomain.Entry{
		Event:          *event,
		SequenceNumber: seq,
		PreviousHash:   auditDomain.GenesisHash,
		Hash:           "ab" + auditDomain.GenesisHash[2:],
		Signature:      "cd" + auditDomain.GenesisHash[2:],
		KeyID:          "audit_key:v1",
	}
}
