// Package clock abstracts the wall clock so time-dependent logic (tolerance windows,
// grace periods, flush timers) can be tested without sleeping.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// New returns a Clock backed by time.Now in UTC.
func New() Clock {
	return realClock{}
}

// Now returns the current UTC time.
func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Mock is a manually driven Clock for tests. Safe for concurrent use.
type Mock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewMock creates a Mock clock positioned at t.
func NewMock(t time.Time) *Mock {
	return &Mock{now: t.UTC()}
}

// Now returns the mocked time.
func (m *Mock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Set moves the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
