package domain

import (
	"github.com/allisson/sentinel/internal/errors"
)

// Audit logger errors.
var (
	// ErrFlushTransientFailure indicates the sink rejected a batch; the batch is retried.
	ErrFlushTransientFailure = errors.Wrap(errors.ErrUnavailable, "audit flush failed")

	// ErrAuditKeyUnavailable indicates no audit key is available to sign or verify entries.
	ErrAuditKeyUnavailable = errors.Wrap(errors.ErrUnavailable, "audit signing key unavailable")

	// ErrInvalidEvent indicates an event with an unknown category, outcome or severity.
	ErrInvalidEvent = errors.Wrap(errors.ErrInvalidInput, "invalid audit event")

	// ErrLoggerStopped indicates an event was logged after the logger shut down.
	ErrLoggerStopped = errors.Wrap(errors.ErrUnavailable, "audit logger stopped")
)
