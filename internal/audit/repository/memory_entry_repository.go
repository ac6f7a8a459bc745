// Package repository implements audit entry sinks: in-memory, JSON lines, PostgreSQL
// and MySQL. Every sink ignores an entry whose sequence number it already holds, so
// re-emitting after a partial flush does not duplicate the chain.
package repository

import (
	"context"
	"sort"
	"sync"

	auditDomain "github.com/allisson/sentinel/internal/audit/domain"
)

// MemoryEntryRepository keeps entries in memory ordered by sequence number.
type MemoryEntryRepository struct {
	mu      sync.RWMutex
	entries []*auditDomain.Entry
	index   map[uint64]struct{}
}

// NewMemoryEntryRepository creates an empty in-memory entry repository.
func NewMemoryEntryRepository() *MemoryEntryRepository {
	return &MemoryEntryRepository{
		entries: make([]*auditDomain.Entry, 0),
		index:   make(map[uint64]struct{}),
	}
}

// Emit stores a copy of entry.
func (m *MemoryEntryRepository) Emit(ctx context.Context, entry *auditDomain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[entry.SequenceNumber]; ok {
		return nil
	}

	stored := *entry
	m.index[entry.SequenceNumber] = struct{}{}
	m.entries = append(m.entries, &stored)
	if n := len(m.entries); n > 1 && m.entries[n-2].SequenceNumber > stored.SequenceNumber {
		sort.Slice(m.entries, func(i, j int) bool {
			return m.entries[i].SequenceNumber < m.entries[j].SequenceNumber
		})
	}
	return nil
}

// List returns entries ordered by sequence number descending (newest first).
func (m *MemoryEntryRepository) List(ctx context.Context, offset, limit int) ([]*auditDomain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*auditDomain.Entry, 0)
	for i := len(m.entries) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		entry := *m.entries[i]
		result = append(result, &entry)
	}
	return result, nil
}

// ListRange returns entries with from <= sequence number <= to, ascending.
// A zero to means no upper bound.
func (m *MemoryEntryRepository) ListRange(ctx context.Context, from, to uint64) ([]*auditDomain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*auditDomain.Entry, 0)
	for _, stored := range m.entries {
		if stored.SequenceNumber < from || (to > 0 && stored.SequenceNumber > to) {
			continue
		}
		entry := *stored
		result = append(result, &entry)
	}
	return result, nil
}

// Last returns the entry with the highest sequence number, or nil when empty.
func (m *MemoryEntryRepository) Last(ctx context.Context) (*auditDomain.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.entries) == 0 {
		return nil, nil
	}
	entry := *m.entries[len(m.entries)-1]
	return &entry, nil
}

// Len returns the number of stored entries.
func (m *MemoryEntryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Tamper replaces the stored entry with the same sequence number. Used to exercise
// integrity verification.
func (m *MemoryEntryRepository) Tamper(entry *auditDomain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, stored := range m.entries {
		if stored.SequenceNumber == entry.SequenceNumber {
			replaced := *entry
			m.entries[i] = &replaced
			return
		}
	}
}

// Remove drops the stored entry with the given sequence number. Used to exercise
// integrity verification.
func (m *MemoryEntryRepository) Remove(sequenceNumber uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, stored := range m.entries {
		if stored.SequenceNumber == sequenceNumber {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}
