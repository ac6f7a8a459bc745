package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock_Now(t *testing.T) {
	before := time.Now().UTC()
	now := New().Now()

	assert.False(t, now.Before(before))
	assert.Equal(t, time.UTC, now.Location())
}

func TestMock(t *testing.T) {
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := NewMock(start)

	assert.Equal(t, start, m.Now())

	m.Advance(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), m.Now())

	m.Set(start)
	assert.Equal(t, start, m.Now())
}

func TestMock_ConcurrentAdvance(t *testing.T) {
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	m := NewMock(start)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Advance(time.Second)
			_ = m.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(50*time.Second), m.Now())
}
