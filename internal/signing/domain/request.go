package domain

import (
	"net/http"
	"time"
)

// Request is the transport-independent view of an inbound request.
type Request struct {
	Method  string
	URL     string // path with optional query, e.g. "/v1/secrets?b=2&a=1"
	Headers http.Header
	Body    []byte
	Actor   string // client IP, used only for audit
}

// SignInput describes a request to sign. Zero Timestamp means now; empty Nonce means
// a random one is generated.
type SignInput struct {
	Method    string
	URL       string
	Headers   http.Header
	Body      []byte
	Timestamp time.Time
	Nonce     string
}

// SignResult carries the signature and the headers a client must attach.
type SignResult struct {
	Signature string
	Timestamp int64 // epoch milliseconds
	Nonce     string
	KeyID     string
	Headers   map[string]string
}

// VerificationMetadata describes how a verification was carried out.
type VerificationMetadata struct {
	Path       string `json:"path"`
	Skipped    bool   `json:"skipped"`
	KeyID      string `json:"key_id,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	DriftMs    int64  `json:"drift_ms,omitempty"`
	Nonce      string `json:"nonce,omitempty"`
	Candidates int    `json:"candidates,omitempty"`
}

// VerificationResult is returned by verification instead of an error, so the caller
// applies its own enforcement policy.
type VerificationResult struct {
	IsValid  bool                 `json:"is_valid"`
	Errors   []*VerificationError `json:"errors"`
	Warnings []string             `json:"warnings"`
	Metadata VerificationMetadata `json:"metadata"`
}

// Fail appends a failure and marks the result invalid.
func (r *VerificationResult) Fail(code ErrorCode, message string) *VerificationResult {
	r.IsValid = false
	r.Errors = append(r.Errors, NewVerificationError(code, message))
	return r
}

// HasCode reports whether the result contains a failure with the given code.
func (r *VerificationResult) HasCode(code ErrorCode) bool {
	for _, err := range r.Errors {
		if err.Code == code {
			return true
		}
	}
	return false
}

// NonceEntry records a consumed nonce until it leaves the nonce window.
type NonceEntry struct {
	Nonce     string
	RequestID string
	SignedAt  time.Time
	ExpiresAt time.Time
}
