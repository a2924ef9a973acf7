package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, path string) *DB {
	t.Helper()

	d, err := OpenDB(context.Background(), path, time.Minute, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestDB_GetOrFetch_RoundTrip(t *testing.T) {
	d := openTestDB(t, filepath.Join(t.TempDir(), "cache.db"))

	var calls int

	producer := func(_ context.Context) ([]byte, error) {
		calls++
		return []byte(`[{"id":"b1"}]`), nil
	}

	for i := 0; i < 2; i++ {
		payload, err := d.GetOrFetch(context.Background(), BanksKey(), producer)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"b1"}]`, string(payload))
	}

	assert.Equal(t, 1, calls)

	n, err := d.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDB_EntriesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	d := openTestDB(t, path)
	_, err := d.GetOrFetch(context.Background(), AccountsKey("rbs"), func(_ context.Context) ([]byte, error) {
		return []byte("persisted"), nil
	})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	reopened := openTestDB(t, path)

	payload, err := reopened.GetOrFetch(context.Background(), AccountsKey("rbs"), func(_ context.Context) ([]byte, error) {
		t.Fatal("producer must not run for a live persisted entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(payload))
}

func TestDB_ExpiredEntryRefetches(t *testing.T) {
	d := openTestDB(t, filepath.Join(t.TempDir(), "cache.db"))

	now := time.Now()
	d.nowFunc = func() time.Time { return now }

	var calls int

	producer := func(_ context.Context) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}

	_, err := d.GetOrFetch(context.Background(), "k", producer)
	require.NoError(t, err)

	now = now.Add(time.Minute)

	_, err = d.GetOrFetch(context.Background(), "k", producer)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDB_ProducerErrorNotStored(t *testing.T) {
	d := openTestDB(t, filepath.Join(t.TempDir(), "cache.db"))

	boom := errors.New("fetch failed")

	_, err := d.GetOrFetch(context.Background(), "k", func(_ context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := d.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDB_InvalidateAll(t *testing.T) {
	d := openTestDB(t, filepath.Join(t.TempDir(), "cache.db"))

	for _, key := range []string{BanksKey(), AccountsKey("rbs")} {
		_, err := d.GetOrFetch(context.Background(), key, func(_ context.Context) ([]byte, error) {
			return []byte("x"), nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, d.InvalidateAll())

	n, err := d.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}
