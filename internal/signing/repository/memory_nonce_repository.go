// Package repository provides NonceRepository implementations used for replay
// prevention: an in-memory store and PostgreSQL/MySQL stores for shared deployments.
package repository

import (
	"context"
	"sync"
	"time"

	signingDomain "github.com/allisson/sentinel/internal/signing/domain"
)

// MemoryNonceRepository keeps consumed nonces in process memory.
type MemoryNonceRepository struct {
	mu      sync.Mutex
	entries map[string]signingDomain.NonceEntry
}

// NewMemoryNonceRepository creates an empty in-memory nonce store.
func NewMemoryNonceRepository() *MemoryNonceRepository {
	return &MemoryNonceRepository{entries: make(map[string]signingDomain.NonceEntry)}
}

// Remember records entry unless its nonce is already held and unexpired. Returns
// false when the nonce was seen before. Check and insert happen under one lock.
func (m *MemoryNonceRepository) Remember(ctx context.Context, entry signingDomain.NonceEntry, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[entry.Nonce]; ok && now.Before(existing.ExpiresAt) {
		return false, nil
	}
	m.entries[entry.Nonce] = entry
	return true, nil
}

// DeleteExpired removes entries whose expiry is at or before now.
func (m *MemoryNonceRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for nonce, entry := range m.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(m.entries, nonce)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of held nonces.
func (m *MemoryNonceRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
