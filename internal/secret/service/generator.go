package service

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	apperrors "github.com/allisson/sentinel/internal/errors"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

// defaultEntropyBytes yields 64 base64url characters.
const defaultEntropyBytes = 48

type randomGenerator struct {
	reader io.Reader
	size   int
}

// NewRandomGenerator creates a Generator backed by crypto/rand.
func NewRandomGenerator() Generator {
	return &randomGenerator{reader: rand.Reader, size: defaultEntropyBytes}
}

// NewGeneratorWithReader creates a Generator reading entropy from reader.
// Intended for tests that need deterministic or failing entropy sources.
func NewGeneratorWithReader(reader io.Reader, size int) Generator {
	return &randomGenerator{reader: reader, size: size}
}

// Generate returns a base64url (unpadded) encoded random value.
func (g *randomGenerator) Generate(secretType secretDomain.SecretType) ([]byte, error) {
	if !secretType.IsValid() {
		return nil, secretDomain.ErrInvalidSecretType
	}

	raw := make([]byte, g.size)
	if _, err := io.ReadFull(g.reader, raw); err != nil {
		return nil, apperrors.Wrap(err, "failed to read random bytes")
	}
	defer zero(raw)

	encoded := make([]byte, base64.RawURLEncoding.EncodedLen(len(raw)))
	base64.RawURLEncoding.Encode(encoded, raw)
	return encoded, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
