package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	apperrors "github.com/allisson/sentinel/internal/errors"
)

// ErrSignatureInvalid indicates an entry signature does not match its content.
var ErrSignatureInvalid = apperrors.Wrap(apperrors.ErrInvalidInput, "audit entry signature invalid")

// signingKeyInfo is the HKDF info label; bump the version if the canonical form changes.
const signingKeyInfo = "audit-log-signing-v1"

type entrySigner struct{}

// NewEntrySigner creates an HMAC-SHA256 entry signer with HKDF-SHA256 key derivation.
func NewEntrySigner() EntrySigner {
	return &entrySigner{}
}

// deriveSigningKey derives a 32-byte MAC key so the raw audit secret is never used directly.
func (s *entrySigner) deriveSigningKey(auditKey []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, auditKey, nil, []byte(signingKeyInfo))

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, err
	}

	return signingKey, nil
}

// canonicalize encodes event || previous_hash || sequence_number. Variable-length
// fields are length-prefixed so adjacent fields cannot be shifted into each other.
func (s *entrySigner) canonicalize(entry *auditDomain.Entry) ([]byte, error) {
	event := &entry.Event
	buf := make([]byte, 0, 1024)

	buf = appendLengthPrefixed(buf, []byte(event.ID.String()))
	buf = appendLengthPrefixed(buf, []byte(event.Timestamp.UTC().Format(time.RFC3339Nano)))
	buf = appendLengthPrefixed(buf, []byte(event.Category))
	buf = appendLengthPrefixed(buf, []byte(event.Action))
	buf = appendLengthPrefixed(buf, []byte(event.Severity))
	buf = appendLengthPrefixed(buf, []byte(event.Outcome))
	buf = appendLengthPrefixed(buf, []byte(event.Actor.IP))
	buf = appendLengthPrefixed(buf, []byte(event.Actor.UserID))
	buf = appendLengthPrefixed(buf, []byte(event.Actor.UserAgent))
	buf = appendLengthPrefixed(buf, []byte(event.RequestID))
	buf = appendLengthPrefixed(buf, []byte(event.Message))

	// encoding/json sorts map keys, which makes the details encoding deterministic.
	if len(event.Details) > 0 {
		details, err := json.Marshal(event.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal details: %w", err)
		}
		buf = appendLengthPrefixed(buf, details)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	buf = appendLengthPrefixed(buf, []byte(strconv.Itoa(event.RiskScore)))
	count := make([]byte, 4)
	binary.BigEndian.PutUint32(count, uint32(len(event.ThreatIndicators)))
	buf = append(buf, count...)
	for _, indicator := range event.ThreatIndicators {
		buf = appendLengthPrefixed(buf, []byte(indicator))
	}
	buf = appendLengthPrefixed(buf, []byte(entry.PreviousHash))

	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, entry.SequenceNumber)
	buf = append(buf, seq...)

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
// Panics if data length exceeds uint32 max (4GB).
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 0xFFFFFFFF {
		panic("data length exceeds uint32 max (4GB)")
	}
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(dataLen))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Hash returns the hex SHA-256 of the canonical entry.
func (s *entrySigner) Hash(entry *auditDomain.Entry) (string, error) {
	canonical, err := s.canonicalize(entry)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize entry: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Sign returns the hex HMAC-SHA256 of the canonical entry.
func (s *entrySigner) Sign(auditKey []byte, entry *auditDomain.Entry) (string, error) {
	signingKey, err := s.deriveSigningKey(auditKey)
	if err != nil {
		return "", fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer zero(signingKey)

	canonical, err := s.canonicalize(entry)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize entry: %w", err)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks the entry signature in constant time.
func (s *entrySigner) Verify(auditKey []byte, entry *auditDomain.Entry) error {
	expected, err := s.Sign(auditKey, entry)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	provided, err := hex.DecodeString(entry.Signature)
	if err != nil {
		return ErrSignatureInvalid
	}
	expectedRaw, _ := hex.DecodeString(expected)

	if !hmac.Equal(provided, expectedRaw) {
		return ErrSignatureInvalid
	}

	return nil
}

// zero overwrites key material once it is no longer needed.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
