// Package service provides the cryptographic primitives of the audit log: canonical
// event encoding, entry hashing and entry signing.
package service

import (
	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
)

// EntrySigner computes the chain hash and the keyed signature of audit entries.
type EntrySigner interface {
	// Hash returns the hex SHA-256 over the canonical event, the previous hash and the
	// sequence number of the entry.
	Hash(entry *auditDomain.Entry) (string, error)

	// Sign returns the hex HMAC-SHA256 of the same input, keyed with a key derived
	// from the audit secret.
	Sign(auditKey []byte, entry *auditDomain.Entry) (string, error)

	// Verify recomputes the signature and compares it in constant time.
	// Returns ErrSignatureInvalid on mismatch.
	Verify(auditKey []byte, entry *auditDomain.Entry) error
}
