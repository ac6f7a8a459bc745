// Package service provides the technical services behind secret management:
// random value generation and at-rest encryption of secret values.
package service

import (
	"context"

	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

// Generator produces new secret values that satisfy the type's validator.
type Generator interface {
	Generate(secretType secretDomain.SecretType) ([]byte, error)
}

// Cipher encrypts secret values before they are persisted by durable repositories.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}
