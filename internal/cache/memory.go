package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is one cached payload with its capture timestamp.
type entry struct {
	payload    []byte
	capturedAt time.Time
}

// Memory is the in-memory Store. Safe for concurrent use: the check-then-write
// around an entry is mutex-guarded, and concurrent producers for the same key
// are collapsed by a singleflight group.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	group   singleflight.Group

	// nowFunc returns the current time. Tests override this.
	nowFunc func() time.Time
}

// NewMemory creates a Memory cache. A non-positive ttl uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// GetOrFetch returns the live entry for key, or invokes producer and caches
// its result. Producer failures propagate uncached.
func (m *Memory) GetOrFetch(ctx context.Context, key string, producer Producer) ([]byte, error) {
	if payload, ok := m.lookup(key); ok {
		return payload, nil
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		// Re-check under the group: another caller may have just filled it.
		if payload, ok := m.lookup(key); ok {
			return payload, nil
		}

		payload, err := producer(ctx)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.entries[key] = entry{payload: payload, capturedAt: m.nowFunc()}
		m.mu.Unlock()

		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

// InvalidateAll clears every entry.
func (m *Memory) InvalidateAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]entry)

	return nil
}

// Len reports the number of stored entries, live or expired.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// lookup returns the payload for key iff the entry is younger than the TTL.
func (m *Memory) lookup(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}

	if m.nowFunc().Sub(e.capturedAt) >= m.ttl {
		return nil, false
	}

	return e.payload, true
}
