package domain

import (
	"github.com/allisson/sentinel/internal/errors"
)

// Secret lifecycle errors.
var (
	// ErrSecretNotFound indicates no secret exists with the requested id.
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")

	// ErrNoActiveSecret indicates a secret type has no active version.
	ErrNoActiveSecret = errors.Wrap(errors.ErrUnavailable, "no active secret")

	// ErrSecretValidationFailed indicates a secret value does not satisfy its type's format rules.
	ErrSecretValidationFailed = errors.Wrap(errors.ErrInvalidInput, "secret validation failed")

	// ErrRotationFailed indicates a rotation attempt did not produce a new active version.
	// The previous active version is left untouched.
	ErrRotationFailed = errors.Wrap(errors.ErrUnavailable, "rotation failed")

	// ErrInvalidStatusTransition indicates an attempt to move a secret backwards in its lifecycle.
	ErrInvalidStatusTransition = errors.Wrap(errors.ErrConflict, "invalid secret status transition")

	// ErrInvalidSecretType indicates an unknown secret type.
	ErrInvalidSecretType = errors.Wrap(errors.ErrInvalidInput, "invalid secret type")

	// ErrInvalidSecretID indicates a malformed "<type>:v<version>" identifier.
	ErrInvalidSecretID = errors.Wrap(errors.ErrInvalidInput, "invalid secret id")
)
