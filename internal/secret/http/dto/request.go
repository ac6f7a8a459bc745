// Package dto provides data transfer objects for the secret admin endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/sentinel/internal/validation"
)

// RotateSecretRequest contains the optional reason recorded with a manual rotation.
type RotateSecretRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the rotate request is valid.
func (r *RotateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason,
			customValidation.NotBlank,
			validation.Length(0, 255),
		),
	)
}
