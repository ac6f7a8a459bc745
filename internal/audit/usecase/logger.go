package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	auditService "github.com/allisson/sentinel/internal/audit/service"
	"github.com/allisson/sentinel/internal/clock"
	apperrors "github.com/allisson/sentinel/internal/errors"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

const alertWindow = time.Hour

// Alert kinds tracked per category.
const (
	alertKindHigh       = "high_severity"
	alertKindCritical   = "critical_severity"
	alertKindSuspicious = "suspicious_pattern"
)

type alertCounter struct {
	high       int
	critical   int
	suspicious int
	alerted    map[string]bool
}

// logger buffers events under mu. Chain state (sequence, lastHash) is only touched
// while flushMu is held, so flushes are serialized and the chain stays gapless.
type logger struct {
	sink   Sink
	keys   KeyProvider
	signer auditService.EntrySigner
	clock  clock.Clock
	config Config
	logger *slog.Logger

	mu          sync.Mutex
	buffer      []*auditDomain.Event
	stopped     bool
	started     bool
	counters    map[auditDomain.Category]*alertCounter
	windowStart time.Time

	flushMu  sync.Mutex
	sequence uint64
	lastHash string

	flushCh  chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewLogger creates an audit Logger writing to sink and signing with the active
// audit key from keys.
func NewLogger(
	sink Sink,
	keys KeyProvider,
	signer auditService.EntrySigner,
	clk clock.Clock,
	config Config,
	log *slog.Logger,
) Logger {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 100
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 5 * time.Second
	}

	return &logger{
		sink:        sink,
		keys:        keys,
		signer:      signer,
		clock:       clk,
		config:      config,
		logger:      log,
		buffer:      make([]*auditDomain.Event, 0),
		counters:    make(map[auditDomain.Category]*alertCounter),
		windowStart: clk.Now(),
		lastHash:    auditDomain.GenesisHash,
		flushCh:     make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// LogEvent buffers a new event built from input.
func (l *logger) LogEvent(ctx context.Context, input auditDomain.EventInput) (*auditDomain.Event, error) {
	if err := input.Validate(); err != nil {
		return nil, apperrors.Wrap(auditDomain.ErrInvalidEvent, err.Error())
	}

	now := l.clock.Now()
	event := auditDomain.NewEvent(input, now)

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil, auditDomain.ErrLoggerStopped
	}
	l.buffer = append(l.buffer, event)
	alerts := l.countLocked(event, now)
	l.buffer = append(l.buffer, alerts...)
	urgent := event.IsUrgent() || len(alerts) > 0 || len(l.buffer) >= l.config.MaxBatchSize
	l.mu.Unlock()

	l.logger.Debug("audit event recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("category", string(event.Category)),
		slog.String("severity", string(event.Severity)),
		slog.Int("risk_score", event.RiskScore))

	if urgent {
		l.triggerFlush()
	}
	return event, nil
}

// countLocked updates the hourly counters of the event's category and returns the
// alert events that crossed a threshold. Alerts are not counted themselves.
func (l *logger) countLocked(event *auditDomain.Event, now time.Time) []*auditDomain.Event {
	if event.Category == auditDomain.CategoryAlert {
		return nil
	}
	l.resetIfExpiredLocked(now)

	counter, ok := l.counters[event.Category]
	if !ok {
		counter = &alertCounter{alerted: make(map[string]bool)}
		l.counters[event.Category] = counter
	}

	alerts := make([]*auditDomain.Event, 0)
	check := func(kind string, count, threshold int, severity auditDomain.Severity) {
		if threshold <= 0 || count <= threshold || counter.alerted[kind] {
			return
		}
		counter.alerted[kind] = true
		alerts = append(alerts, l.newAlert(event.Category, kind, count, threshold, severity, now))
	}

	switch event.Severity {
	case auditDomain.SeverityHigh:
		counter.high++
		check(alertKindHigh, counter.high, l.config.AlertHighPerHour, auditDomain.SeverityHigh)
	case auditDomain.SeverityCritical:
		counter.critical++
		check(alertKindCritical, counter.critical, l.config.AlertCriticalPerHour, auditDomain.SeverityCritical)
	}

	if event.Category.IsUrgent() || event.Outcome == auditDomain.OutcomeBlocked {
		counter.suspicious++
		check(alertKindSuspicious, counter.suspicious, l.config.AlertSuspiciousPerHour, auditDomain.SeverityHigh)
	}

	return alerts
}

func (l *logger) newAlert(
	category auditDomain.Category,
	kind string,
	count, threshold int,
	severity auditDomain.Severity,
	now time.Time,
) *auditDomain.Event {
	l.logger.Warn("audit alert threshold exceeded",
		slog.String("category", string(category)),
		slog.String("kind", kind),
		slog.Int("count", count),
		slog.Int("threshold", threshold))

	return auditDomain.NewEvent(auditDomain.EventInput{
		Category: auditDomain.CategoryAlert,
		Action:   "threshold_exceeded",
		Outcome:  auditDomain.OutcomeWarning,
		Severity: severity,
		Message:  fmt.Sprintf("%d %s events in category %s within the hour", count, kind, category),
		Details: map[string]any{
			"category":  string(category),
			"kind":      kind,
			"count":     count,
			"threshold": threshold,
		},
	}, now)
}

func (l *logger) resetIfExpiredLocked(now time.Time) {
	if now.Sub(l.windowStart) < alertWindow {
		return
	}
	l.counters = make(map[auditDomain.Category]*alertCounter)
	l.windowStart = now
}

// ResetExpiredCounters clears the counters when the hour window has elapsed.
func (l *logger) ResetExpiredCounters() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfExpiredLocked(l.clock.Now())
}

// Pending returns the buffer length.
func (l *logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

func (l *logger) triggerFlush() {
	select {
	case l.flushCh <- struct{}{}:
	default:
	}
}

// Flush drains the buffer into the sink. Each entry advances the chain only after
// the sink accepted it.
func (l *logger) Flush(ctx context.Context) (int, error) {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	events := l.buffer
	l.buffer = make([]*auditDomain.Event, 0)
	l.mu.Unlock()

	if len(events) == 0 {
		return 0, nil
	}

	key, err := l.keys.GetActive(ctx, secretDomain.AuditKey)
	if err != nil {
		l.requeue(events)
		return 0, apperrors.Wrap(auditDomain.ErrAuditKeyUnavailable, err.Error())
	}

	for i, event := range events {
		entry := &auditDomain.Entry{
			Event:          *event,
			SequenceNumber: l.sequence + 1,
			PreviousHash:   l.lastHash,
			KeyID:          key.ID,
		}

		if err := l.seal(key.Value, entry); err != nil {
			l.requeue(events[i:])
			return i, apperrors.Wrap(err, "failed to seal audit entry")
		}

		if err := l.sink.Emit(ctx, entry); err != nil {
			l.requeue(events[i:])
			l.logger.Warn("audit sink rejected entry; events re-buffered",
				slog.Uint64("sequence_number", entry.SequenceNumber),
				slog.Int("pending", len(events)-i),
				slog.Any("error", err))
			return i, apperrors.Wrap(auditDomain.ErrFlushTransientFailure, err.Error())
		}

		l.sequence = entry.SequenceNumber
		l.lastHash = entry.Hash
	}

	return len(events), nil
}

func (l *logger) seal(auditKey []byte, entry *auditDomain.Entry) error {
	hash, err := l.signer.Hash(entry)
	if err != nil {
		return err
	}
	signature, err := l.signer.Sign(auditKey, entry)
	if err != nil {
		return err
	}
	entry.Hash = hash
	entry.Signature = signature
	return nil
}

// requeue puts events back at the front of the buffer, ahead of anything logged
// while the flush was running.
func (l *logger) requeue(events []*auditDomain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buffer := make([]*auditDomain.Event, 0, len(events)+len(l.buffer))
	buffer = append(buffer, events...)
	l.buffer = append(buffer, l.buffer...)
}

// Resume loads the chain tail from the sink when it supports reads.
func (l *logger) Resume(ctx context.Context) error {
	repository, ok := l.sink.(EntryRepository)
	if !ok {
		return nil
	}

	last, err := repository.Last(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to read audit chain tail")
	}
	if last == nil {
		return nil
	}

	l.flushMu.Lock()
	defer l.flushMu.Unlock()
	l.sequence = last.SequenceNumber
	l.lastHash = last.Hash

	l.logger.Info("audit chain resumed", slog.Uint64("sequence_number", last.SequenceNumber))
	return nil
}

// Start runs the flusher until ctx is cancelled or Stop is called.
func (l *logger) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	go l.run(ctx)
}

func (l *logger) run(ctx context.Context) {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.backgroundFlush(ctx)
		case <-l.flushCh:
			l.backgroundFlush(ctx)
		}
	}
}

func (l *logger) backgroundFlush(ctx context.Context) {
	if _, err := l.Flush(ctx); err != nil {
		l.logger.Error("audit flush failed", slog.Any("error", err))
	}
}

// Stop halts the flusher, refuses further events and drains the buffer once more.
func (l *logger) Stop(ctx context.Context) error {
	l.mu.Lock()
	started := l.started
	l.stopped = true
	l.mu.Unlock()

	l.stopOnce.Do(func() { close(l.stopCh) })

	if started {
		select {
		case <-l.doneCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err := l.Flush(ctx)
	return err
}

// VerifyIntegrity recomputes every hash and signature and checks that sequence
// numbers and previous-hash pointers form an unbroken chain starting at from.
// A zero from is treated as 1.
func (l *logger) VerifyIntegrity(
	ctx context.Context,
	from uint64,
	entries []*auditDomain.Entry,
) *auditDomain.IntegrityReport {
	if from == 0 {
		from = 1
	}

	report := &auditDomain.IntegrityReport{
		IsValid:        true,
		CheckedEntries: len(entries),
		InvalidEntries: make([]auditDomain.InvalidEntry, 0),
	}

	if len(entries) == 0 {
		l.flushMu.Lock()
		last := l.sequence
		l.flushMu.Unlock()

		if from <= last {
			report.IsValid = false
			report.ChainBroken = true
			report.InvalidEntries = append(report.InvalidEntries, auditDomain.InvalidEntry{
				SequenceNumber: from,
				Reasons: []string{
					fmt.Sprintf("entries %d to %d were emitted but none were returned", from, last),
				},
			})
		}
		return report
	}

	keys := make(map[string][]byte)
	var previous *auditDomain.Entry

	for _, entry := range entries {
		reasons := make([]string, 0)

		switch {
		case previous == nil:
			if entry.SequenceNumber != from {
				reasons = append(reasons,
					fmt.Sprintf("range starts at %d, expected %d", entry.SequenceNumber, from))
				report.ChainBroken = true
			}
			if from == 1 && entry.PreviousHash != auditDomain.GenesisHash {
				reasons = append(reasons, "first entry does not link to genesis")
				report.ChainBroken = true
			}
		default:
			if entry.SequenceNumber != previous.SequenceNumber+1 {
				reasons = append(reasons,
					fmt.Sprintf("sequence gap: expected %d, got %d", previous.SequenceNumber+1, entry.SequenceNumber))
				report.ChainBroken = true
			}
			if entry.PreviousHash != previous.Hash {
				reasons = append(reasons, "previous hash does not match preceding entry")
				report.ChainBroken = true
			}
		}

		if hash, err := l.signer.Hash(entry); err != nil || hash != entry.Hash {
			reasons = append(reasons, "hash mismatch")
		}

		key, ok := keys[entry.KeyID]
		if !ok {
			key = l.lookupAuditKey(ctx, entry.KeyID)
			keys[entry.KeyID] = key
		}
		switch {
		case key == nil:
			reasons = append(reasons, "audit key unavailable: "+entry.KeyID)
		case l.signer.Verify(key, entry) != nil:
			reasons = append(reasons, "signature mismatch")
		}

		if len(reasons) > 0 {
			report.IsValid = false
			report.InvalidEntries = append(report.InvalidEntries, auditDomain.InvalidEntry{
				SequenceNumber: entry.SequenceNumber,
				EventID:        entry.Event.ID.String(),
				Reasons:        reasons,
			})
		}
		previous = entry
	}

	return report
}

// lookupAuditKey returns the value of an audit key version, or nil when it was
// evicted or the id names another secret type.
func (l *logger) lookupAuditKey(ctx context.Context, id string) []byte {
	secretType, _, err := secretDomain.ParseSecretID(id)
	if err != nil || secretType != secretDomain.AuditKey {
		return nil
	}

	secret, err := l.keys.Lookup(ctx, id)
	if err != nil {
		l.logger.Warn("audit key lookup failed", slog.String("key_id", id), slog.Any("error", err))
		return nil
	}
	return secret.Value
}
