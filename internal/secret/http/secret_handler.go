// Package http provides the admin endpoints of the secret rotation manager. Responses
// never include secret values.
package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/sentinel/internal/httputil"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	"github.com/allisson/sentinel/internal/secret/http/dto"
	secretUseCase "github.com/allisson/sentinel/internal/secret/usecase"
	customValidation "github.com/allisson/sentinel/internal/validation"
)

const manualRotationReason = "manual rotation"

// SecretHandler handles HTTP requests for secret rotation operations.
type SecretHandler struct {
	manager secretUseCase.RotationManager
	logger  *slog.Logger
}

// NewSecretHandler creates a new secret handler.
func NewSecretHandler(manager secretUseCase.RotationManager, logger *slog.Logger) *SecretHandler {
	return &SecretHandler{manager: manager, logger: logger}
}

// ListHandler returns metadata of every stored secret version.
// GET /v1/secrets
func (h *SecretHandler) ListHandler(c *gin.Context) {
	views, err := h.manager.List(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretsToListResponse(views))
}

// RotationStatusHandler reports whether a type needs rotating.
// GET /v1/secrets/:type/rotation
func (h *SecretHandler) RotationStatusHandler(c *gin.Context) {
	secretType, ok := h.parseType(c)
	if !ok {
		return
	}

	need, err := h.manager.NeedsRotation(c.Request.Context(), secretType)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationNeedToResponse(need))
}

// RotateHandler rotates a type on demand. The body is optional.
// POST /v1/secrets/:type/rotate
func (h *SecretHandler) RotateHandler(c *gin.Context) {
	secretType, ok := h.parseType(c)
	if !ok {
		return
	}

	var req dto.RotateSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}
	if req.Reason == "" {
		req.Reason = manualRotationReason
	}

	result, err := h.manager.Rotate(c.Request.Context(), secretType, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationResultToResponse(result))
}

// HealthCheckHandler runs a health check pass over every stored secret.
// POST /v1/secrets/health-check
func (h *SecretHandler) HealthCheckHandler(c *gin.Context) {
	report, err := h.manager.HealthCheck(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapHealthReportToResponse(report))
}

func (h *SecretHandler) parseType(c *gin.Context) (secretDomain.SecretType, bool) {
	secretType := secretDomain.SecretType(c.Param("type"))
	if !secretType.IsValid() {
		httputil.HandleErrorGin(c, secretDomain.ErrInvalidSecretType, h.logger)
		return "", false
	}
	return secretType, true
}
