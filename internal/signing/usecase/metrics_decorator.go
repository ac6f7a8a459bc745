package usecase

import (
	"context"
	"time"

	"github.com/allisson/sentinel/internal/metrics"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
)

// verifierWithMetrics decorates Verifier with metrics instrumentation. The status label
// is "valid", "skipped" or the code of the first failure.
type verifierWithMetrics struct {
	next    Verifier
	metrics metrics.BusinessMetrics
}

// NewVerifierWithMetrics wraps a Verifier with metrics recording.
func NewVerifierWithMetrics(verifier Verifier, m metrics.BusinessMetrics) Verifier {
	return &verifierWithMetrics{next: verifier, metrics: m}
}

// Verify records the verification outcome and duration.
func (v *verifierWithMetrics) Verify(
	ctx context.Context,
	request *signingDomain.Request,
) *signingDomain.VerificationResult {
	start := time.Now()
	result := v.next.Verify(ctx, request)

	status := "valid"
	switch {
	case result.Metadata.Skipped:
		status = "skipped"
	case !result.IsValid && len(result.Errors) > 0:
		status = string(result.Errors[0].Code)
	}

	v.metrics.RecordOperation(ctx, "signing", "request_verify", status)
	v.metrics.RecordDuration(ctx, "signing", "request_verify", time.Since(start), status)

	return result
}

// IsSensitivePath delegates without instrumentation.
func (v *verifierWithMetrics) IsSensitivePath(path string) bool {
	return v.next.IsSensitivePath(path)
}

// CleanupNonces records nonce cleanup passes.
func (v *verifierWithMetrics) CleanupNonces(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := v.next.CleanupNonces(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	v.metrics.RecordOperation(ctx, "signing", "nonce_cleanup", status)
	v.metrics.RecordDuration(ctx, "signing", "nonce_cleanup", time.Since(start), status)

	return deleted, err
}

// signerWithMetrics decorates Signer with metrics instrumentation.
type signerWithMetrics struct {
	next    Signer
	metrics metrics.BusinessMetrics
}

// NewSignerWithMetrics wraps a Signer with metrics recording.
func NewSignerWithMetrics(signer Signer, m metrics.BusinessMetrics) Signer {
	return &signerWithMetrics{next: signer, metrics: m}
}

// Sign records signing operations.
func (s *signerWithMetrics) Sign(
	ctx context.Context,
	input signingDomain.SignInput,
) (*signingDomain.SignResult, error) {
	start := time.Now()
	result, err := s.next.Sign(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "signing", "request_sign", status)
	s.metrics.RecordDuration(ctx, "signing", "request_sign", time.Since(start), status)

	return result, err
}
