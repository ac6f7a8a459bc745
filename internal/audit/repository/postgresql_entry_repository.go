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

// PostgreSQLEntryRepository persists audit entries in PostgreSQL. The event is
// stored as JSONB next to indexed projections of its category, severity and outcome.
type PostgreSQLEntryRepository struct {
	db *sql.DB
}

// Emit inserts entry. A row with the same sequence number is left untouched.
func (p *PostgreSQLEntryRepository) Emit(ctx context.Context, entry *auditDomain.Entry) error {
	querier := database.GetTx(ctx, p.db)

	eventJSON, err := marshalEvent(entry)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_entries (sequence_number, event_id, event, category, severity, outcome,
			  risk_score, previous_hash, hash, signature, key_id, occurred_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  ON CONFLICT (sequence_number) DO NOTHING`

	_, err = querier.ExecContext(
		ctx,
		query,
		int64(entry.SequenceNumber),
		entry.Event.ID,
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
func (p *PostgreSQLEntryRepository) List(ctx context.Context, offset, limit int) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + entryColumns + ` FROM audit_entries
			  ORDER BY sequence_number DESC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	return scanEntries(rows)
}

// ListRange retrieves entries with from <= sequence number <= to in chain order.
// A zero to means no upper bound.
func (p *PostgreSQLEntryRepository) ListRange(ctx context.Context, from, to uint64) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, p.db)

	upper := int64(math.MaxInt64)
	if to > 0 {
		upper = int64(to)
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries
			  WHERE sequence_number >= $1 AND sequence_number <= $2
			  ORDER BY sequence_number ASC`

	rows, err := querier.QueryContext(ctx, query, int64(from), upper)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}
	return scanEntries(rows)
}

// Last returns the tail of the chain, or nil when the table is empty.
func (p *PostgreSQLEntryRepository) Last(ctx context.Context) (*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, p.db)

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

// NewPostgreSQLEntryRepository creates a new PostgreSQL audit entry repository.
func NewPostgreSQLEntryRepository(db *sql.DB) *PostgreSQLEntryRepository {
	return &PostgreSQLEntryRepository{db: db}
}
