// Package dto provides data transfer objects for the audit log endpoints.
package dto

import (
	validation "github.com/jellydator/validation"
)

// VerifyAuditLogsRequest selects the sequence range to verify. A zero ToSequence means
// up to the tail of the chain.
type VerifyAuditLogsRequest struct {
	FromSequence uint64 `json:"from_sequence"`
	ToSequence   uint64 `json:"to_sequence"`
}

// Validate checks if the verify request is valid.
func (r *VerifyAuditLogsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FromSequence, validation.Required),
		validation.Field(&r.ToSequence,
			validation.When(r.ToSequence != 0, validation.Min(r.FromSequence)),
		),
	)
}
