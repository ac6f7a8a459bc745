package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/allisson/sentinel/internal/clock"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
	signingService "github.com/allisson/sentinel/internal/signing/service"
)

type verifier struct {
	keys   KeyProvider
	nonces NonceRepository
	clock  clock.Clock
	config Config
	logger *slog.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(
	keys KeyProvider,
	nonces NonceRepository,
	clk clock.Clock,
	config Config,
	logger *slog.Logger,
) Verifier {
	return &verifier{keys: keys, nonces: nonces, clock: clk, config: config, logger: logger}
}

// IsSensitivePath matches path against the configured prefixes on segment boundaries,
// so "/v1/secrets" covers "/v1/secrets/x" but not "/v1/secretsx".
func (v *verifier) IsSensitivePath(path string) bool {
	for _, prefix := range v.config.SensitivePaths {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" {
			return true
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Verify runs the checks in order and stops at the first failure: required headers,
// algorithm, timestamp tolerance, nonce, signature.
func (v *verifier) Verify(ctx context.Context, request *signingDomain.Request) *signingDomain.VerificationResult {
	result := &signingDomain.VerificationResult{
		IsValid:  true,
		Errors:   make([]*signingDomain.VerificationError, 0),
		Warnings: make([]string, 0),
	}

	path := request.URL
	if parsed, err := url.Parse(request.URL); err == nil {
		path = parsed.Path
	}
	result.Metadata.Path = path

	if !v.IsSensitivePath(path) {
		result.Metadata.Skipped = true
		return result
	}

	result.Warnings = append(result.Warnings, signingService.Inspect(request.URL, request.Headers)...)

	missing := make([]string, 0)
	for _, header := range signingDomain.RequiredHeaders {
		if strings.TrimSpace(request.Headers.Get(header)) == "" {
			missing = append(missing, header)
		}
	}
	if len(missing) > 0 {
		return result.Fail(signingDomain.CodeMissingHeader, "missing headers: "+strings.Join(missing, ", "))
	}

	if algorithm := request.Headers.Get(signingDomain.HeaderSignatureAlgorithm); algorithm != signingDomain.Algorithm {
		return result.Fail(signingDomain.CodeUnsupportedAlgorithm, fmt.Sprintf("unsupported algorithm %q", algorithm))
	}

	timestamp, err := strconv.ParseInt(request.Headers.Get(signingDomain.HeaderTimestamp), 10, 64)
	if err != nil {
		return result.Fail(signingDomain.CodeTimestampOutOfTolerance, "timestamp is not epoch milliseconds")
	}
	result.Metadata.Timestamp = timestamp

	now := v.clock.Now()
	tolerance := v.config.EffectiveTolerance()
	drift := now.UnixMilli() - timestamp
	result.Metadata.DriftMs = drift
	if abs(drift) > tolerance.Milliseconds() {
		return result.Fail(
			signingDomain.CodeTimestampOutOfTolerance,
			fmt.Sprintf("clock drift %dms exceeds tolerance %dms", drift, tolerance.Milliseconds()),
		)
	}
	if abs(drift) > tolerance.Milliseconds()/2 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("large clock drift %dms", drift))
	}

	// The nonce is consumed before the signature is checked, so a forged signature
	// still burns the nonce.
	nonce := request.Headers.Get(signingDomain.HeaderNonce)
	result.Metadata.Nonce = nonce
	stored, err := v.nonces.Remember(ctx, signingDomain.NonceEntry{
		Nonce:     nonce,
		RequestID: request.Headers.Get(signingDomain.HeaderRequestID),
		SignedAt:  timestampToTime(timestamp),
		ExpiresAt: now.Add(v.config.NonceWindow),
	}, now)
	if err != nil {
		v.logger.Error("nonce store unavailable", slog.Any("error", err))
		return result.Fail(signingDomain.CodeVerificationUnavailable, "nonce store unavailable")
	}
	if !stored {
		return result.Fail(signingDomain.CodeNonceReplayed, "nonce already used")
	}

	candidates, code, message := v.candidates(ctx, request.Headers.Get(signingDomain.HeaderKeyVersion))
	if code != "" {
		return result.Fail(code, message)
	}
	result.Metadata.Candidates = len(candidates)

	canonical, err := signingService.CanonicalRequest(
		request.Method, request.URL, request.Headers, request.Body, timestamp, nonce,
	)
	if err != nil {
		return result.Fail(signingDomain.CodeSignatureMismatch, "request url cannot be canonicalized")
	}

	// Every candidate is checked so timing does not reveal which version matched.
	provided := request.Headers.Get(signingDomain.HeaderSignature)
	var matched *secretDomain.Secret
	for _, candidate := range candidates {
		if signingService.SignatureMatches(candidate.Value, canonical, provided) && matched == nil {
			matched = candidate
		}
	}
	if matched == nil {
		return result.Fail(signingDomain.CodeSignatureMismatch, "signature does not match")
	}

	result.Metadata.KeyID = matched.ID
	if err := v.keys.RecordUsage(ctx, matched.ID); err != nil {
		v.logger.Warn("failed to record signing key usage",
			slog.String("secret_id", matched.ID),
			slog.Any("error", err))
	}

	return result
}

// candidates returns the versions to try: the pinned version when the client sent
// one, otherwise every acceptable signing key.
func (v *verifier) candidates(
	ctx context.Context,
	pinned string,
) ([]*secretDomain.Secret, signingDomain.ErrorCode, string) {
	if pinned != "" {
		secretType, _, err := secretDomain.ParseSecretID(pinned)
		if err != nil || secretType != secretDomain.SigningKey {
			return nil, signingDomain.CodeSignatureMismatch, "invalid key version"
		}
		secret, err := v.keys.GetByVersion(ctx, pinned)
		if err != nil {
			return nil, signingDomain.CodeNoActiveSecret, "key version is not acceptable"
		}
		return []*secretDomain.Secret{secret}, "", ""
	}

	secrets, err := v.keys.Acceptable(ctx, secretDomain.SigningKey)
	if err != nil || len(secrets) == 0 {
		return nil, signingDomain.CodeNoActiveSecret, "no acceptable signing key"
	}
	return secrets, "", ""
}

// CleanupNonces removes nonces past their window.
func (v *verifier) CleanupNonces(ctx context.Context) (int64, error) {
	return v.nonces.DeleteExpired(ctx, v.clock.Now())
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
