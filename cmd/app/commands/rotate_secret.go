package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	secretDTO "github.com/allisson/sentinel/internal/secret/http/dto"
	secretUseCase "github.com/allisson/sentinel/internal/secret/usecase"
)

// RunRotateSecret promotes a freshly generated version of secretType to active. The
// previous active version stays verifiable for the configured grace period. The
// rotation is recorded in the audit chain when the container shuts down.
//
// Requirements: a SQL storage driver, otherwise the new version is lost on exit.
func RunRotateSecret(
	ctx context.Context,
	manager secretUseCase.RotationManager,
	logger *slog.Logger,
	writer io.Writer,
	secretTypeStr string,
	reason string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	secretType, err := parseSecretType(secretTypeStr)
	if err != nil {
		return err
	}

	if reason == "" {
		reason = "manual rotation"
	}

	logger.Info("rotating secret",
		slog.String("type", string(secretType)),
		slog.String("reason", reason),
	)

	result, err := manager.Rotate(ctx, secretType, reason)
	if err != nil {
		return fmt.Errorf("failed to rotate secret: %w", err)
	}

	logger.Info("secret rotated",
		slog.String("new_secret_id", result.NewSecretID),
		slog.String("previous_id", result.PreviousID),
	)

	if format == "json" {
		return writeJSON(writer, secretDTO.MapRotationResultToResponse(result))
	}

	_, _ = fmt.Fprintf(writer, "Rotated %s to version %d (%s)\n", result.Type, result.NewVersion, result.NewSecretID)
	if result.PreviousID != "" {
		_, _ = fmt.Fprintf(writer, "Previous version: %s\n", result.PreviousID)
	}
	if result.GraceUntil != nil {
		_, _ = fmt.Fprintf(writer, "Previous version accepted until: %s\n", result.GraceUntil.Format(time.RFC3339))
	}
	return nil
}

// RunListSecrets prints every stored secret version without its value.
func RunListSecrets(
	ctx context.Context,
	manager secretUseCase.RotationManager,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	views, err := manager.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list secrets: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, secretDTO.MapSecretsToListResponse(views))
	}

	if len(views) == 0 {
		_, _ = fmt.Fprintln(writer, "No secrets stored")
		return nil
	}

	_, _ = fmt.Fprintf(writer, "%-26s %-11s %-8s %-10s %s\n", "ID", "STATUS", "HEALTHY", "USES", "EXPIRES")
	for _, view := range views {
		_, _ = fmt.Fprintf(writer, "%-26s %-11s %-8t %-10d %s\n",
			view.ID,
			view.Status,
			view.Healthy,
			view.UseCount,
			view.ExpiresAt.Format(time.RFC3339),
		)
	}
	return nil
}
