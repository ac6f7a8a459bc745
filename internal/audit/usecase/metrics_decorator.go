package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	"github.com/allisson/sentinel/internal/metrics"
)

// loggerWithMetrics decorates Logger with metrics instrumentation.
type loggerWithMetrics struct {
	next    Logger
	metrics metrics.BusinessMetrics
}

// NewLoggerWithMetrics wraps a Logger with metrics recording.
func NewLoggerWithMetrics(logger Logger, m metrics.BusinessMetrics) Logger {
	return &loggerWithMetrics{next: logger, metrics: m}
}

// LogEvent counts events by category.
func (l *loggerWithMetrics) LogEvent(
	ctx context.Context,
	input auditDomain.EventInput,
) (*auditDomain.Event, error) {
	event, err := l.next.LogEvent(ctx, input)

	status := string(input.Category)
	if err != nil {
		status = "error"
	}
	l.metrics.RecordOperation(ctx, "audit", "audit_log_event", status)

	return event, err
}

// Flush records explicit flushes.
func (l *loggerWithMetrics) Flush(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := l.next.Flush(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	l.metrics.RecordOperation(ctx, "audit", "audit_flush", status)
	l.metrics.RecordDuration(ctx, "audit", "audit_flush", time.Since(start), status)

	return n, err
}

// Resume delegates without instrumentation.
func (l *loggerWithMetrics) Resume(ctx context.Context) error {
	return l.next.Resume(ctx)
}

// Start delegates without instrumentation.
func (l *loggerWithMetrics) Start(ctx context.Context) {
	l.next.Start(ctx)
}

// Stop delegates without instrumentation.
func (l *loggerWithMetrics) Stop(ctx context.Context) error {
	return l.next.Stop(ctx)
}

// VerifyIntegrity records the verification outcome.
func (l *loggerWithMetrics) VerifyIntegrity(
	ctx context.Context,
	from uint64,
	entries []*auditDomain.Entry,
) *auditDomain.IntegrityReport {
	start := time.Now()
	report := l.next.VerifyIntegrity(ctx, from, entries)

	status := "valid"
	if !report.IsValid {
		status = "invalid"
	}

	l.metrics.RecordOperation(ctx, "audit", "audit_verify", status)
	l.metrics.RecordDuration(ctx, "audit", "audit_verify", time.Since(start), status)

	return report
}

// ResetExpiredCounters delegates without instrumentation.
func (l *loggerWithMetrics) ResetExpiredCounters() {
	l.next.ResetExpiredCounters()
}

// Pending delegates without instrumentation.
func (l *loggerWithMetrics) Pending() int {
	return l.next.Pending()
}
