// Package http provides the read and verification endpoints of the audit log.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/sentinel/internal/audit/http/dto"
	auditUseCase "github.com/allisson/sentinel/internal/audit/usecase"
	"github.com/allisson/sentinel/internal/httputil"
	customValidation "github.com/allisson/sentinel/internal/validation"
)

// AuditLogHandler handles HTTP requests for audit log operations.
type AuditLogHandler struct {
	repository  auditUseCase.EntryRepository
	auditLogger auditUseCase.Logger
	logger      *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler.
func NewAuditLogHandler(
	repository auditUseCase.EntryRepository,
	auditLogger auditUseCase.Logger,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		repository:  repository,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// ListHandler retrieves audit log entries newest first with pagination.
// GET /v1/audit-logs?offset=0&limit=50
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	page, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	entries, err := h.repository.List(c.Request.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditLogsToListResponse(entries))
}

// VerifyHandler re-checks hashes, signatures and linkage over a sequence range.
// POST /v1/audit-logs/verify
func (h *AuditLogHandler) VerifyHandler(c *gin.Context) {
	var req dto.VerifyAuditLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	entries, err := h.repository.ListRange(c.Request.Context(), req.FromSequence, req.ToSequence)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	report := h.auditLogger.VerifyIntegrity(c.Request.Context(), req.FromSequence, entries)
	if !report.IsValid {
		h.logger.Warn("audit log integrity check failed",
			slog.Uint64("from_sequence", req.FromSequence),
			slog.Uint64("to_sequence", req.ToSequence),
			slog.Int("invalid_entries", len(report.InvalidEntries)),
			slog.Bool("chain_broken", report.ChainBroken),
		)
	}

	c.JSON(http.StatusOK, dto.MapIntegrityReportToResponse(report))
}
