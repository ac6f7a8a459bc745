package repository

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/allisson/sentinel/internal/errors"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

const secretColumns = `id, type, version, value, checksum, status, healthy, use_count, last_used_at,
	last_health_check_at, created_at, expires_at, deprecated_at, grace_until, revoked_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSecret reads one secret row and decrypts its value.
func scanSecret(ctx context.Context, row rowScanner, cipher secretService.Cipher) (*secretDomain.Secret, error) {
	var secret secretDomain.Secret
	var secretType, status string
	var encrypted []byte
	var lastUsedAt, lastHealthCheckAt, deprecatedAt, graceUntil, revokedAt sql.NullTime

	err := row.Scan(
		&secret.ID,
		&secretType,
		&secret.Version,
		&encrypted,
		&secret.Checksum,
		&status,
		&secret.Healthy,
		&secret.UseCount,
		&lastUsedAt,
		&lastHealthCheckAt,
		&secret.CreatedAt,
		&secret.ExpiresAt,
		&deprecatedAt,
		&graceUntil,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	value, err := cipher.Decrypt(ctx, encrypted)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decrypt secret value")
	}

	secret.Type = secretDomain.SecretType(secretType)
	secret.Status = secretDomain.Status(status)
	secret.Value = value
	secret.CreatedAt = secret.CreatedAt.UTC()
	secret.ExpiresAt = secret.ExpiresAt.UTC()
	secret.LastUsedAt = fromNullTime(lastUsedAt)
	secret.LastHealthCheckAt = fromNullTime(lastHealthCheckAt)
	secret.DeprecatedAt = fromNullTime(deprecatedAt)
	secret.GraceUntil = fromNullTime(graceUntil)
	secret.RevokedAt = fromNullTime(revokedAt)

	return &secret, nil
}

// scanSecrets drains rows into a slice. Returns an empty slice when there are no rows.
func scanSecrets(ctx context.Context, rows *sql.Rows, cipher secretService.Cipher) ([]*secretDomain.Secret, error) {
	defer func() {
		_ = rows.Close()
	}()

	secrets := make([]*secretDomain.Secret, 0)
	for rows.Next() {
		secret, err := scanSecret(ctx, rows, cipher)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan secret")
		}
		secrets = append(secrets, secret)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate secrets")
	}
	return secrets, nil
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
