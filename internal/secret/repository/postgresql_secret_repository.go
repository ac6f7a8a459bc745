package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/sentinel/internal/database"
	apperrors "github.com/allisson/sentinel/internal/errors"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

// PostgreSQLSecretRepository persists secrets in PostgreSQL. Values are encrypted with
// the configured Cipher before they reach the database.
type PostgreSQLSecretRepository struct {
	db     *sql.DB
	cipher secretService.Cipher
}

// Create inserts a new secret. Uses transaction support via database.GetTx().
func (p *PostgreSQLSecretRepository) Create(ctx context.Context, secret *secretDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	encrypted, err := p.cipher.Encrypt(ctx, secret.Value)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt secret value")
	}

	query := `INSERT INTO secrets (` + secretColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = querier.ExecContext(
		ctx,
		query,
		secret.ID,
		string(secret.Type),
		secret.Version,
		encrypted,
		secret.Checksum,
		string(secret.Status),
		secret.Healthy,
		secret.UseCount,
		toNullTime(secret.LastUsedAt),
		toNullTime(secret.LastHealthCheckAt),
		secret.CreatedAt,
		secret.ExpiresAt,
		toNullTime(secret.DeprecatedAt),
		toNullTime(secret.GraceUntil),
		toNullTime(secret.RevokedAt),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create secret")
	}

	return nil
}

// Update writes the mutable lifecycle fields of a secret. The value and checksum are
// immutable once stored.
func (p *PostgreSQLSecretRepository) Update(ctx context.Context, secret *secretDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secrets SET status = $1, healthy = $2, use_count = $3, last_used_at = $4,
			  last_health_check_at = $5, deprecated_at = $6, grace_until = $7, revoked_at = $8
			  WHERE id = $9`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(secret.Status),
		secret.Healthy,
		secret.UseCount,
		toNullTime(secret.LastUsedAt),
		toNullTime(secret.LastHealthCheckAt),
		toNullTime(secret.DeprecatedAt),
		toNullTime(secret.GraceUntil),
		toNullTime(secret.RevokedAt),
		secret.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update secret")
	}

	return checkAffected(result)
}

// Get retrieves a secret by id. Returns ErrSecretNotFound if absent.
func (p *PostgreSQLSecretRepository) Get(ctx context.Context, id string) (*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE id = $1`

	secret, err := scanSecret(ctx, querier.QueryRowContext(ctx, query, id), p.cipher)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, secretDomain.ErrSecretNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get secret")
	}

	return secret, nil
}

// ListByType retrieves every version of a type ordered by version descending.
func (p *PostgreSQLSecretRepository) ListByType(
	ctx context.Context,
	secretType secretDomain.SecretType,
) ([]*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE type = $1 ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, string(secretType))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets by type")
	}

	return scanSecrets(ctx, rows, p.cipher)
}

// List retrieves every secret ordered by type then version descending.
func (p *PostgreSQLSecretRepository) List(ctx context.Context) ([]*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + secretColumns + ` FROM secrets ORDER BY type ASC, version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	return scanSecrets(ctx, rows, p.cipher)
}

// Delete removes a secret row.
func (p *PostgreSQLSecretRepository) Delete(ctx context.Context, id string) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM secrets WHERE id = $1`, id); err != nil {
		return apperrors.Wrap(err, "failed to delete secret")
	}

	return nil
}

// IncrementUsage atomically bumps the usage counter.
func (p *PostgreSQLSecretRepository) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secrets SET use_count = use_count + 1, last_used_at = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, usedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to increment secret usage")
	}

	return checkAffected(result)
}

// NewPostgreSQLSecretRepository creates a new PostgreSQL secret repository.
func NewPostgreSQLSecretRepository(db *sql.DB, cipher secretService.Cipher) *PostgreSQLSecretRepository {
	return &PostgreSQLSecretRepository{db: db, cipher: cipher}
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return secretDomain.ErrSecretNotFound
	}
	return nil
}
