package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	auditDTO "github.com/allisson/sentinel/internal/audit/http/dto"
	auditUseCase "github.com/allisson/sentinel/internal/audit/usecase"
)

// RunVerifyAuditLogs recomputes hashes, signatures and chain linkage of the stored
// audit entries with from <= sequence number <= to. A zero to means the chain tail.
// Returns an error when any entry fails so the exit code reflects tampering.
//
// Requirements: a readable audit sink (memory or database) and the audit keys that
// signed the entries still stored.
func RunVerifyAuditLogs(
	ctx context.Context,
	repository auditUseCase.EntryRepository,
	auditLogger auditUseCase.Logger,
	logger *slog.Logger,
	writer io.Writer,
	from, to uint64,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if from == 0 {
		return fmt.Errorf("from sequence number must be at least 1")
	}
	if to != 0 && to < from {
		return fmt.Errorf("to sequence number must not be lower than from")
	}

	logger.Info("verifying audit logs",
		slog.Uint64("from", from),
		slog.Uint64("to", to),
	)

	entries, err := repository.ListRange(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to read audit logs: %w", err)
	}

	report := auditLogger.VerifyIntegrity(ctx, from, entries)

	if format == "json" {
		if err := writeJSON(writer, auditDTO.MapIntegrityReportToResponse(report)); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Audit Log Integrity Verification\n")
		_, _ = fmt.Fprintf(writer, "=================================\n\n")
		if to == 0 {
			_, _ = fmt.Fprintf(writer, "Sequence Range: %d to tail\n\n", from)
		} else {
			_, _ = fmt.Fprintf(writer, "Sequence Range: %d to %d\n\n", from, to)
		}
		_, _ = fmt.Fprintf(writer, "Total Checked:  %d\n", report.CheckedEntries)
		_, _ = fmt.Fprintf(writer, "Invalid:        %d\n", len(report.InvalidEntries))
		_, _ = fmt.Fprintf(writer, "Chain Broken:   %t\n\n", report.ChainBroken)

		switch {
		case !report.IsValid:
			_, _ = fmt.Fprintf(writer, "WARNING: %d entry(ies) failed integrity check!\n\n", len(report.InvalidEntries))
			for _, invalid := range report.InvalidEntries {
				_, _ = fmt.Fprintf(writer, "  - #%d %s: %s\n",
					invalid.SequenceNumber,
					invalid.EventID,
					strings.Join(invalid.Reasons, "; "),
				)
			}
			_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
		case report.CheckedEntries == 0:
			_, _ = fmt.Fprintf(writer, "Status: No entries found in specified range\n")
		default:
			_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
		}
	}

	logger.Info("verification completed",
		slog.Int("checked", report.CheckedEntries),
		slog.Int("invalid", len(report.InvalidEntries)),
		slog.Bool("chain_broken", report.ChainBroken),
	)

	if !report.IsValid {
		return fmt.Errorf("integrity check failed: %d invalid entry(ies)", len(report.InvalidEntries))
	}
	return nil
}
