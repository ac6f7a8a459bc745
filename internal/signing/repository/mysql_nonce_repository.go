package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/sentinel/internal/database"
	apperrors "github.com/allisson/sentinel/internal/errors"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
)

// MySQLNonceRepository stores consumed nonces in MySQL.
type MySQLNonceRepository struct {
	db *sql.DB
}

// Remember inserts the nonce. An expired row for the same nonce is purged first, then
// INSERT IGNORE makes the check-and-insert atomic on the primary key.
func (m *MySQLNonceRepository) Remember(
	ctx context.Context,
	entry signingDomain.NonceEntry,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	if _, err := querier.ExecContext(
		ctx,
		`DELETE FROM request_nonces WHERE nonce = ? AND expires_at <= ?`,
		entry.Nonce,
		now,
	); err != nil {
		return false, apperrors.Wrap(err, "failed to purge expired nonce")
	}

	result, err := querier.ExecContext(
		ctx,
		`INSERT IGNORE INTO request_nonces (nonce, request_id, signed_at, expires_at) VALUES (?, ?, ?, ?)`,
		entry.Nonce,
		entry.RequestID,
		entry.SignedAt,
		entry.ExpiresAt,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to remember nonce")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}
	return affected == 1, nil
}

// DeleteExpired removes nonces that left the window.
func (m *MySQLNonceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM request_nonces WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired nonces")
	}
	return result.RowsAffected()
}

// NewMySQLNonceRepository creates a new MySQL nonce repository.
func NewMySQLNonceRepository(db *sql.DB) *MySQLNonceRepository {
	return &MySQLNonceRepository{db: db}
}
