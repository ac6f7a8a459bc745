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

// MySQLSecretRepository persists secrets in MySQL. Values are encrypted with the
// configured Cipher and stored as VARBINARY. The DSN must enable parseTime.
type MySQLSecretRepository struct {
	db     *sql.DB
	cipher secretService.Cipher
}

// Create inserts a new secret. Uses transaction support via database.GetTx().
func (m *MySQLSecretRepository) Create(ctx context.Context, secret *secretDomain.Secret) error {
	querier := database.GetTx(ctx, m.db)

	encrypted, err := m.cipher.Encrypt(ctx, secret.Value)
	if err != nil {
		return apperrors.Wrap(err, "failed to encrypt secret value")
	}

	query := `INSERT INTO secrets (` + secretColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
func (m *MySQLSecretRepository) Update(ctx context.Context, secret *secretDomain.Secret) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE secrets SET status = ?, healthy = ?, use_count = ?, last_used_at = ?,
			  last_health_check_at = ?, deprecated_at = ?, grace_until = ?, revoked_at = ?
			  WHERE id = ?`

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

	// MySQL reports changed rows rather than matched rows, so an unchanged update
	// affects zero rows. Existence is confirmed separately.
	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		return nil
	}
	if _, err := m.Get(ctx, secret.ID); err != nil {
		return err
	}
	return nil
}

// Get retrieves a secret by id. Returns ErrSecretNotFound if absent.
func (m *MySQLSecretRepository) Get(ctx context.Context, id string) (*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE id = ?`

	secret, err := scanSecret(ctx, querier.QueryRowContext(ctx, query, id), m.cipher)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, secretDomain.ErrSecretNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get secret")
	}

	return secret, nil
}

// ListByType retrieves every version of a type ordered by version descending.
func (m *MySQLSecretRepository) ListByType(
	ctx context.Context,
	secretType secretDomain.SecretType,
) ([]*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + secretColumns + ` FROM secrets WHERE type = ? ORDER BY version DESC`

	rows, err := querier.QueryContext(ctx, query, string(secretType))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets by type")
	}

	return scanSecrets(ctx, rows, m.cipher)
}

// List retrieves every secret ordered by type then version descending.
func (m *MySQLSecretRepository) List(ctx context.Context) ([]*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + secretColumns + ` FROM secrets ORDER BY type ASC, version DESC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}

	return scanSecrets(ctx, rows, m.cipher)
}

// Delete removes a secret row.
func (m *MySQLSecretRepository) Delete(ctx context.Context, id string) error {
	querier := database.GetTx(ctx, m.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM secrets WHERE id = ?`, id); err != nil {
		return apperrors.Wrap(err, "failed to delete secret")
	}

	return nil
}

// IncrementUsage atomically bumps the usage counter.
func (m *MySQLSecretRepository) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE secrets SET use_count = use_count + 1, last_used_at = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, usedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to increment secret usage")
	}

	return checkAffected(result)
}

// NewMySQLSecretRepository creates a new MySQL secret repository.
func NewMySQLSecretRepository(db *sql.DB, cipher secretService.Cipher) *MySQLSecretRepository {
	return &MySQLSecretRepository{db: db, cipher: cipher}
}
