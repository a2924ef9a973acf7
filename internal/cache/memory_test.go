package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetOrFetch_ProducerOncePerTTL(t *testing.T) {
	now := time.Now()
	m := NewMemory(5 * time.Minute)
	m.nowFunc = func() time.Time { return now }

	var calls int

	producer := func(_ context.Context) ([]byte, error) {
		calls++
		return []byte(`[{"id":"b1"}]`), nil
	}

	for i := 0; i < 3; i++ {
		payload, err := m.GetOrFetch(context.Background(), BanksKey(), producer)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"b1"}]`, string(payload))
	}

	// All calls inside the TTL share one fetch.
	assert.Equal(t, 1, calls)

	// Just under the boundary still serves the entry; at the boundary it
	// expires and refetches.
	now = now.Add(5*time.Minute - time.Second)
	_, err := m.GetOrFetch(context.Background(), BanksKey(), producer)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(time.Second)
	_, err = m.GetOrFetch(context.Background(), BanksKey(), producer)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMemory_GetOrFetch_ErrorNotCached(t *testing.T) {
	m := NewMemory(time.Minute)

	var calls int

	boom := errors.New("upstream down")
	producer := func(_ context.Context) ([]byte, error) {
		calls++
		return nil, boom
	}

	_, err := m.GetOrFetch(context.Background(), BanksKey(), producer)
	assert.ErrorIs(t, err, boom)

	_, err = m.GetOrFetch(context.Background(), BanksKey(), producer)
	assert.ErrorIs(t, err, boom)

	// Failures are retried, never memoized.
	assert.Equal(t, 2, calls)
	assert.Zero(t, m.Len())
}

func TestMemory_GetOrFetch_ConcurrentCallersShareOneFetch(t *testing.T) {
	m := NewMemory(time.Minute)

	var calls atomic.Int32

	gate := make(chan struct{})
	producer := func(_ context.Context) ([]byte, error) {
		calls.Add(1)
		<-gate
		return []byte("x"), nil
	}

	const n = 8

	var wg sync.WaitGroup
	wg.Add(n)

	for j := 0; j < n; j++ {
		go func() {
			defer wg.Done()

			payload, err := m.GetOrFetch(context.Background(), "k", producer)
			assert.NoError(t, err)
			assert.Equal(t, "x", string(payload))
		}()
	}

	// Let the in-flight producer finish once all callers are queued.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestMemory_InvalidateAll(t *testing.T) {
	m := NewMemory(time.Minute)

	_, err := m.GetOrFetch(context.Background(), AccountsKey("rbs"), func(_ context.Context) ([]byte, error) {
		return []byte("a"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.InvalidateAll())
	assert.Zero(t, m.Len())

	var calls int

	_, err = m.GetOrFetch(context.Background(), AccountsKey("rbs"), func(_ context.Context) ([]byte, error) {
		calls++
		return []byte("b"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	m := NewMemory(time.Minute)

	for _, key := range []string{BanksKey(), AccountsKey("rbs"), TransactionsKey("rbs", "a1", "owner")} {
		payload, err := m.GetOrFetch(context.Background(), key, func(_ context.Context) ([]byte, error) {
			return []byte(key), nil
		})
		require.NoError(t, err)
		assert.Equal(t, key, string(payload))
	}

	assert.Equal(t, 3, m.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "banks", BanksKey())
	assert.Equal(t, "accounts:rbs", AccountsKey("rbs"))
	assert.Equal(t, "transactions:rbs:a1:owner", TransactionsKey("rbs", "a1", "owner"))
}
