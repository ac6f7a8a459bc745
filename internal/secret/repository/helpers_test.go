package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
	secretService "github.com/allisson/sentinel/internal/secret/service"
)

// reverseCipher is a reversible test cipher that makes ciphertext differ from plaintext.
type reverseCipher struct{}

func (reverseCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return reverse(plaintext), nil
}

func (reverseCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return reverse(ciphertext), nil
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

func newLocalCipher(t *testing.T) secretService.Cipher {
	t.Helper()
	cipher, err := secretService.OpenKeeperCipher(context.Background(), "base64key://")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cipher.Close() })
	return cipher
}

func newTestSecret(secretType secretDomain.SecretType, version int) *secretDomain.Secret {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	value := []byte("abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGH")
	return secretDomain.NewSecret(secretType, version, value, now, 30*24*time.Hour)
}
