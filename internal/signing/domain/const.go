// Package domain defines the request-signing wire format, the verification result
// model and the verification error taxonomy.
package domain

// Wire headers carrying a request signature.
const (
	HeaderTimestamp          = "X-Timestamp"
	HeaderNonce              = "X-Nonce"
	HeaderSignature          = "X-Signature"
	HeaderSignatureAlgorithm = "X-Signature-Algorithm"
	// HeaderKeyVersion optionally pins the secret version ("signing_key:v3") used to sign.
	HeaderKeyVersion = "X-Key-Version"
	HeaderRequestID  = "X-Request-Id"
)

// Algorithm is the only supported signature algorithm.
const Algorithm = "HMAC-SHA256"

// RequiredHeaders must be present on every signed request.
var RequiredHeaders = []string{HeaderTimestamp, HeaderNonce, HeaderSignature, HeaderSignatureAlgorithm}

// SignedHeaders is the allow-list of lower-cased headers folded into the canonical string.
var SignedHeaders = []string{"content-type", "x-api-version", "x-client-id", "x-request-id"}

// signatureHeaders are never part of the canonical header block.
var signatureHeaders = map[string]struct{}{
	"x-timestamp":           {},
	"x-nonce":               {},
	"x-signature":           {},
	"x-signature-algorithm": {},
	"x-key-version":         {},
}

// IsSignatureHeader reports whether a lower-cased header name carries signature data.
func IsSignatureHeader(name string) bool {
	_, ok := signatureHeaders[name]
	return ok
}

// EnforcementMode decides what a caller does with a failed verification.
type EnforcementMode string

const (
	// EnforcementStrict rejects requests that fail verification.
	EnforcementStrict EnforcementMode = "strict"
	// EnforcementWarn logs failures and lets requests through.
	EnforcementWarn EnforcementMode = "warn"
	// EnforcementDisabled skips verification.
	EnforcementDisabled EnforcementMode = "disabled"
)

// IsValid reports whether m is a known mode.
func (m EnforcementMode) IsValid() bool {
	switch m {
	case EnforcementStrict, EnforcementWarn, EnforcementDisabled:
		return true
	}
	return false
}
