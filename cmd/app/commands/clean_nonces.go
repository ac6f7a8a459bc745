package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	signingUseCase "github.com/allisson/sentinel/internal/signing/usecase"
)

// RunCleanNonces removes nonces whose replay window has ended. The server does this
// periodically; the command is for deployments that run it from an external cron.
func RunCleanNonces(
	ctx context.Context,
	verifier signingUseCase.Verifier,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	removed, err := verifier.CleanupNonces(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean nonces: %w", err)
	}

	logger.Info("nonce cleanup completed", slog.Int64("removed", removed))

	if format == "json" {
		return writeJSON(writer, map[string]any{"removed_count": removed})
	}

	_, _ = fmt.Fprintf(writer, "Removed %d expired nonce(s)\n", removed)
	return nil
}
