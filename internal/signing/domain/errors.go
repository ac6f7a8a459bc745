package domain

import (
	"github.com/allisson/sentinel/internal/errors"
)

// Verification failures. All wrap ErrUnauthorized so callers can map them uniformly.
var (
	ErrMissingHeader           = errors.Wrap(errors.ErrUnauthorized, "missing signature header")
	ErrUnsupportedAlgorithm    = errors.Wrap(errors.ErrUnauthorized, "unsupported signature algorithm")
	ErrTimestampOutOfTolerance = errors.Wrap(errors.ErrUnauthorized, "timestamp out of tolerance")
	ErrNonceReplayed           = errors.Wrap(errors.ErrUnauthorized, "nonce replayed")
	ErrSignatureMismatch       = errors.Wrap(errors.ErrUnauthorized, "signature mismatch")
	ErrNoSigningKey            = errors.Wrap(errors.ErrUnauthorized, "no acceptable signing key")
	ErrVerificationUnavailable = errors.Wrap(errors.ErrUnavailable, "verification unavailable")
)

// ErrorCode names a verification failure.
type ErrorCode string

const (
	CodeMissingHeader           ErrorCode = "MissingHeader"
	CodeUnsupportedAlgorithm    ErrorCode = "UnsupportedAlgorithm"
	CodeTimestampOutOfTolerance ErrorCode = "TimestampOutOfTolerance"
	CodeNonceReplayed           ErrorCode = "NonceReplayed"
	CodeSignatureMismatch       ErrorCode = "SignatureMismatch"
	CodeNoActiveSecret          ErrorCode = "NoActiveSecret"
	CodeVerificationUnavailable ErrorCode = "VerificationUnavailable"
)

var codeErrors = map[ErrorCode]error{
	CodeMissingHeader:           ErrMissingHeader,
	CodeUnsupportedAlgorithm:    ErrUnsupportedAlgorithm,
	CodeTimestampOutOfTolerance: ErrTimestampOutOfTolerance,
	CodeNonceReplayed:           ErrNonceReplayed,
	CodeSignatureMismatch:       ErrSignatureMismatch,
	CodeNoActiveSecret:          ErrNoSigningKey,
	CodeVerificationUnavailable: ErrVerificationUnavailable,
}

// VerificationError is one failed check. It unwraps to the sentinel of its code.
type VerificationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// NewVerificationError creates a VerificationError.
func NewVerificationError(code ErrorCode, message string) *VerificationError {
	return &VerificationError{Code: code, Message: message}
}

func (e *VerificationError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// Unwrap returns the sentinel error for the code.
func (e *VerificationError) Unwrap() error {
	return codeErrors[e.Code]
}
