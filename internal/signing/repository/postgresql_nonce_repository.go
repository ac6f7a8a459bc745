package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/sentinel/internal/database"
	apperrors "github.com/allisson/sentinel/internal/errors"
	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
)

// PostgreSQLNonceRepository stores consumed nonces in PostgreSQL so replay protection
// holds across instances.
type PostgreSQLNonceRepository struct {
	db *sql.DB
}

// Remember inserts the nonce, replacing an expired row for the same nonce. Returns
// false when an unexpired row already exists.
func (p *PostgreSQLNonceRepository) Remember(
	ctx context.Context,
	entry signingDomain.NonceEntry,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO request_nonces (nonce, request_id, signed_at, expires_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (nonce) DO UPDATE
			  SET request_id = EXCLUDED.request_id, signed_at = EXCLUDED.signed_at, expires_at = EXCLUDED.expires_at
			  WHERE request_nonces.expires_at <= $5`

	result, err := querier.ExecContext(ctx, query, entry.Nonce, entry.RequestID, entry.SignedAt, entry.ExpiresAt, now)
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
func (p *PostgreSQLNonceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM request_nonces WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired nonces")
	}
	return result.RowsAffected()
}

// NewPostgreSQLNonceRepository creates a new PostgreSQL nonce repository.
func NewPostgreSQLNonceRepository(db *sql.DB) *PostgreSQLNonceRepository {
	return &PostgreSQLNonceRepository{db: db}
}
