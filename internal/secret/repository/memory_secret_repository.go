// Package repository provides SecretRepository implementations: an in-memory store for
// single-instance deployments and PostgreSQL/MySQL stores for shared deployments.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/allisson/sentinel/internal/errors"
	secretDomain "github.com/allisson/sentinel/internal/secret/domain"
)

// MemorySecretRepository keeps secrets in process memory. Callers always receive
// copies, so mutations must go through Update.
type MemorySecretRepository struct {
	mu      sync.RWMutex
	secrets map[string]*secretDomain.Secret
}

// NewMemorySecretRepository creates an empty in-memory repository.
func NewMemorySecretRepository() *MemorySecretRepository {
	return &MemorySecretRepository{secrets: make(map[string]*secretDomain.Secret)}
}

// Create stores a new secret. Returns ErrConflict if the id already exists.
func (m *MemorySecretRepository) Create(ctx context.Context, secret *secretDomain.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.secrets[secret.ID]; exists {
		return apperrors.Wrapf(apperrors.ErrConflict, "secret %s already exists", secret.ID)
	}
	m.secrets[secret.ID] = secret.Clone()
	return nil
}

// Update replaces a stored secret.
func (m *MemorySecretRepository) Update(ctx context.Context, secret *secretDomain.Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.secrets[secret.ID]; !exists {
		return secretDomain.ErrSecretNotFound
	}
	m.secrets[secret.ID] = secret.Clone()
	return nil
}

// Get returns a copy of the secret with the given id.
func (m *MemorySecretRepository) Get(ctx context.Context, id string) (*secretDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secret, ok := m.secrets[id]
	if !ok {
		return nil, secretDomain.ErrSecretNotFound
	}
	return secret.Clone(), nil
}

// ListByType returns every version of a type ordered by version descending.
func (m *MemorySecretRepository) ListByType(
	ctx context.Context,
	secretType secretDomain.SecretType,
) ([]*secretDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secrets := make([]*secretDomain.Secret, 0)
	for _, secret := range m.secrets {
		if secret.Type == secretType {
			secrets = append(secrets, secret.Clone())
		}
	}
	sort.Slice(secrets, func(i, j int) bool { return secrets[i].Version > secrets[j].Version })
	return secrets, nil
}

// List returns every stored secret ordered by type then version descending.
func (m *MemorySecretRepository) List(ctx context.Context) ([]*secretDomain.Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secrets := make([]*secretDomain.Secret, 0, len(m.secrets))
	for _, secret := range m.secrets {
		secrets = append(secrets, secret.Clone())
	}
	sort.Slice(secrets, func(i, j int) bool {
		if secrets[i].Type != secrets[j].Type {
			return secrets[i].Type < secrets[j].Type
		}
		return secrets[i].Version > secrets[j].Version
	})
	return secrets, nil
}

// Delete evicts a secret. Deleting a missing secret is not an error.
func (m *MemorySecretRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if secret, ok := m.secrets[id]; ok {
		zero(secret.Value)
		delete(m.secrets, id)
	}
	return nil
}

// IncrementUsage bumps the usage counter of a secret.
func (m *MemorySecretRepository) IncrementUsage(ctx context.Context, id string, usedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	secret, ok := m.secrets[id]
	if !ok {
		return secretDomain.ErrSecretNotFound
	}
	secret.UseCount++
	secret.LastUsedAt = &usedAt
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
