package usecase

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/allisson/sentinel/internal/clock"
	apperrors "github.com/allisson/sentinel/internal/errors"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
	signingService "github.com/allisson/sentinel/internal/signing/service"
)

type signer struct {
	keys  KeyProvider
	clock clock.Clock
}

// NewSigner creates a Signer backed by the active signing key.
func NewSigner(keys KeyProvider, clk clock.Clock) Signer {
	return &signer{keys: keys, clock: clk}
}

// Sign computes the signature of input and returns the headers to attach.
func (s *signer) Sign(ctx context.Context, input signingDomain.SignInput) (*signingDomain.SignResult, error) {
	key, err := s.keys.GetActive(ctx, secretDomain.SigningKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get signing key")
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = s.clock.Now()
	}
	nonce := input.Nonce
	if nonce == "" {
		nonce = uuid.NewString()
	}
	timestampMs := timestamp.UnixMilli()

	canonical, err := signingService.CanonicalRequest(
		input.Method, input.URL, input.Headers, input.Body, timestampMs, nonce,
	)
	if err != nil {
		return nil, err
	}

	signature := signingService.ComputeSignature(key.Value, canonical)

	return &signingDomain.SignResult{
		Signature: signature,
		Timestamp: timestampMs,
		Nonce:     nonce,
		KeyID:     key.ID,
		Headers: map[string]string{
			signingDomain.HeaderTimestamp:          strconv.FormatInt(timestampMs, 10),
			signingDomain.HeaderNonce:              nonce,
			signingDomain.HeaderSignature:          signature,
			signingDomain.HeaderSignatureAlgorithm: signingDomain.Algorithm,
			signingDomain.HeaderKeyVersion:         key.ID,
		},
	}, nil
}
