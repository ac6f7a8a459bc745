package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
	"github.com/allisson/sentinel/internal/database"
	apperrors "github.com/allisson/sentinel/internal/errors"
)

// MySQLEntryRepository persists audit entries in MySQL. Event ids are stored as
// BINARY(16) and the event itself as a JSON column.
type MySQLEntryRepository struct {
	db *sql.DB
}

// Emit inserts entry. INSERT IGNORE skips a row whose sequence number already exists.
func (m *MySQLEntryRepository) Emit(ctx context.Context, entry *auditDomain.Entry) error {
	querier := database.GetTx(ctx, m.db)

	eventJSON, err := marshalEvent(entry)
	if err != nil {
		return err
	}

	eventID, err := entry.Event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}

	query := `INSERT IGNORE INTO audit_entries (sequence_number, event_id, event, category, severity, outcome,
			  risk_score, previous_hash, hash, signature, key_id, occurred_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		int64(entry.SequenceNumber),
		eventID,
		eventJSON,
		string(entry.Event.Category),
		string(entry.Event.Severity),
		string(entry.Event.Outcome),
		entry.Event.RiskScore,
		entry.PreviousHash,
		entry.Hash,
		entry.Signature,
		entry.KeyID,
		entry.Event.Timestamp,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit entry")
	}

	return nil
}

// List retrieves entries ordered by sequence number descending with pagination.
func (m *MySQLEntryRepository) List(ctx context.Context, offset, limit int) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + entryColumns + ` FROM audit_entries
			  ORDER BY sequence_number DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	return scanEntries(rows)
}

// ListRange retrieves entries with from <= sequence number <= to in chain order.
// A zero to means no upper bound.
func (m *MySQLEntryRepository) ListRange(ctx context.Context, from, to uint64) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, m.db)

	upper := int64(math.MaxInt64)
	if to > 0 {
		upper = int64(to)
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries
			  WHERE sequence_number >= ? AND sequence_number <= ?
			  ORDER BY sequence_number ASC`

	rows, err := querier.QueryContext(ctx, query, int64(from), upper)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	return scanEntries(rows)
}

// Last returns the tail of the chain, or nil when the table is empty.
func (m *MySQLEntryRepository) Last(ctx context.Context) (*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + entryColumns + ` FROM audit_entries
			  ORDER BY sequence_number DESC
			  LIMIT 1`

	entry, err := scanEntry(querier.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to get last audit entry")
	}
	return entry, nil
}

// NewMySQLEntryRepository creates a new MySQL audit entry repository.
func NewMySQLEntryRepository(db *sql.DB) *MySQLEntryRepository {
	return &MySQLEntryRepository{db: db}
}
