// Package http provides the gin middleware that enforces request signatures.
package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	apperrors "github.com/allisson/sentinel/internal/errors"
	"github.com/allisson/sentinel/internal/httputil"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
	signingUseCase "github.com/allisson/sentinel/internal/signing/usecase"
)

// KeyIDContextKey is the gin context key holding the secret id that verified the request.
const KeyIDContextKey = "signature_key_id"

// AuditLogger records security events.
type AuditLogger interface {
	LogEvent(ctx context.Context, input auditDomain.EventInput) (*auditDomain.Event, error)
}

// SignatureMiddleware verifies request signatures on sensitive paths.
//
// The body is read once and restored so handlers can bind it again. Every verification
// of a sensitive path is audited. What happens on failure depends on mode:
//   - strict: the request is rejected with a generic 401 (503 when the nonce store is down)
//   - warn: the failure is logged and the request continues
//   - disabled: nothing is verified
func SignatureMiddleware(
	verifier signingUseCase.Verifier,
	auditLogger AuditLogger,
	mode signingDomain.EnforcementMode,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if mode == signingDomain.EnforcementDisabled || !verifier.IsSensitivePath(c.Request.URL.Path) {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			var err error
			body, err = io.ReadAll(c.Request.Body)
			if err != nil {
				httputil.HandleBadRequestGin(c, apperrors.New("failed to read request body"), logger)
				c.Abort()
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		actor := auditDomain.Actor{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
		result := verifier.Verify(c.Request.Context(), &signingDomain.Request{
			Method:  c.Request.Method,
			URL:     c.Request.URL.RequestURI(),
			Headers: c.Request.Header,
			Body:    body,
			Actor:   actor.IP,
		})

		requestID := c.GetHeader(signingDomain.HeaderRequestID)
		if requestID == "" {
			requestID = requestid.Get(c)
		}
		recordVerification(c.Request.Context(), auditLogger, logger, mode, actor, requestID, result)

		if !result.IsValid {
			failure := result.Errors[0]
			if mode == signingDomain.EnforcementStrict {
				logger.Debug("request signature rejected",
					slog.String("path", result.Metadata.Path),
					slog.String("code", string(failure.Code)))
				httputil.HandleErrorGin(c, failure, nil)
				c.Abort()
				return
			}

			logger.Warn("request signature invalid; allowed in warn mode",
				slog.String("path", result.Metadata.Path),
				slog.String("code", string(failure.Code)),
				slog.String("message", failure.Message))
		}

		if result.Metadata.KeyID != "" {
			c.Set(KeyIDContextKey, result.Metadata.KeyID)
		}
		c.Next()
	}
}

// recordVerification turns a verification result into audit events: one for the
// verification itself and one for heuristic warnings.
func recordVerification(
	ctx context.Context,
	auditLogger AuditLogger,
	logger *slog.Logger,
	mode signingDomain.EnforcementMode,
	actor auditDomain.Actor,
	requestID string,
	result *signingDomain.VerificationResult,
) {
	details := map[string]any{
		"path":     result.Metadata.Path,
		"drift_ms": result.Metadata.DriftMs,
		"mode":     string(mode),
	}
	if result.Metadata.KeyID != "" {
		details["key_id"] = result.Metadata.KeyID
	}

	input := auditDomain.EventInput{
		Category:  auditDomain.CategorySignatureVerification,
		Action:    "verify_signature",
		Outcome:   auditDomain.OutcomeSuccess,
		Actor:     actor,
		RequestID: requestID,
		Message:   "request signature verified",
		Details:   details,
	}

	if !result.IsValid {
		failure := result.Errors[0]
		details["code"] = string(failure.Code)

		input.Message = failure.Message
		input.Outcome = auditDomain.OutcomeWarning
		if mode == signingDomain.EnforcementStrict {
			input.Outcome = auditDomain.OutcomeBlocked
		}
		if failure.Code == signingDomain.CodeNonceReplayed {
			input.Category = auditDomain.CategoryReplayAttempt
		}
		if failure.Code == signingDomain.CodeVerificationUnavailable {
			input.Category = auditDomain.CategorySystemError
			input.Outcome = auditDomain.OutcomeFailure
		}
		input.ThreatIndicators = []string{string(failure.Code)}
	}

	logEvent(ctx, auditLogger, logger, input)

	if len(result.Warnings) > 0 {
		logEvent(ctx, auditLogger, logger, auditDomain.EventInput{
			Category:         auditDomain.CategorySuspiciousActivity,
			Action:           "inspect_request",
			Outcome:          auditDomain.OutcomeWarning,
			Actor:            actor,
			RequestID:        requestID,
			Message:          "suspicious request characteristics",
			Details:          map[string]any{"path": result.Metadata.Path},
			ThreatIndicators: result.Warnings,
		})
	}
}

func logEvent(ctx context.Context, auditLogger AuditLogger, logger *slog.Logger, input auditDomain.EventInput) {
	if _, err := auditLogger.LogEvent(ctx, input); err != nil {
		logger.Error("failed to record audit event",
			slog.String("category", string(input.Category)),
			slog.Any("error", err))
	}
}
