// Package usecase implements the audit logger: buffered event ingestion, hash-chained
// signed entries, per-category alert thresholds and chain integrity verification.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

// Sink accepts one entry at a time. Implementations must treat a repeated sequence
// number as already stored.
type Sink interface {
	Emit(ctx context.Context, entry *auditDomain.Entry) error
}

// EntryRepository is a sink that can read entries back.
type EntryRepository interface {
	Sink

	// List returns entries newest first.
	List(ctx context.Context, offset, limit int) ([]*auditDomain.Entry, error)

	// ListRange returns entries with from <= sequence number <= to in chain order.
	// A zero to means no upper bound.
	ListRange(ctx context.Context, from, to uint64) ([]*auditDomain.Entry, error)

	// Last returns the tail of the chain, or nil when nothing is stored.
	Last(ctx context.Context) (*auditDomain.Entry, error)
}

// KeyProvider exposes the audit keys owned by the rotation manager.
type KeyProvider interface {
	GetActive(ctx context.Context, secretType secretDomain.SecretType) (*secretDomain.Secret, error)
	Lookup(ctx context.Context, id string) (*secretDomain.Secret, error)
}

// Logger records security events as a tamper-evident chain.
type Logger interface {
	// LogEvent validates input, builds the event and buffers it. Urgent events and a
	// full batch wake the background flusher.
	LogEvent(ctx context.Context, input auditDomain.EventInput) (*auditDomain.Event, error)

	// Flush emits every buffered event. Returns the number of entries emitted.
	// On a sink failure the unemitted events go back to the front of the buffer.
	Flush(ctx context.Context) (int, error)

	// Resume continues the chain from the last stored entry when the sink can read.
	Resume(ctx context.Context) error

	// Start launches the background flusher. Stop halts it and drains the buffer.
	Start(ctx context.Context)
	Stop(ctx context.Context) error

	// VerifyIntegrity checks hashes, signatures and chain linkage of entries given in
	// chain order. from is the first sequence number the caller asked for; a missing
	// head or an empty result for a range the logger already emitted breaks the chain.
	VerifyIntegrity(ctx context.Context, from uint64, entries []*auditDomain.Entry) *auditDomain.IntegrityReport

	// ResetExpiredCounters clears alert counters once their hour has elapsed.
	ResetExpiredCounters()

	// Pending returns the number of buffered events.
	Pending() int
}

// Config holds flush and alerting parameters. A zero alert threshold disables that alert.
type Config struct {
	FlushInterval          time.Duration
	MaxBatchSize           int
	AlertHighPerHour       int
	AlertCriticalPerHour   int
	AlertSuspiciousPerHour int
}
