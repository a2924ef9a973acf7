package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // sqlite driver
)

// DB is the sqlite-backed Store. CLI invocations are short-lived processes,
// so persisting entries keeps the TTL window meaningful across runs.
type DB struct {
	db     *sql.DB
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger

	// nowFunc returns the current time. Tests override this.
	nowFunc func() time.Time
}

// OpenDB opens (or creates) the cache database at path and applies pending
// migrations. A non-positive ttl uses DefaultTTL.
func OpenDB(ctx context.Context, path string, ttl time.Duration, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening database %s: %w", path, err)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db, ttl: ttl, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// GetOrFetch returns the live entry for key, or invokes producer and stores
// its result. Producer failures propagate uncached.
func (d *DB) GetOrFetch(ctx context.Context, key string, producer Producer) ([]byte, error) {
	if payload, ok := d.lookup(ctx, key); ok {
		return payload, nil
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		if payload, ok := d.lookup(ctx, key); ok {
			return payload, nil
		}

		payload, err := producer(ctx)
		if err != nil {
			return nil, err
		}

		if storeErr := d.put(ctx, key, payload); storeErr != nil {
			// A failed write degrades to pass-through; the payload is still good.
			d.logger.Warn("storing cache entry failed",
				slog.String("key", key),
				slog.String("error", storeErr.Error()),
			)
		}

		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

// InvalidateAll deletes every entry.
func (d *DB) InvalidateAll() error {
	if _, err := d.db.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("cache: invalidating entries: %w", err)
	}

	return nil
}

// Len reports the number of stored entries, live or expired.
func (d *DB) Len() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: counting entries: %w", err)
	}

	return n, nil
}

// lookup returns the payload for key iff the entry is younger than the TTL.
func (d *DB) lookup(ctx context.Context, key string) ([]byte, bool) {
	var (
		payload    []byte
		capturedAt int64
	)

	row := d.db.QueryRowContext(ctx, `SELECT payload, captured_at FROM entries WHERE key = ?`, key)
	if err := row.Scan(&payload, &capturedAt); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			d.logger.Warn("reading cache entry failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}

		return nil, false
	}

	if d.nowFunc().Sub(time.Unix(0, capturedAt)) >= d.ttl {
		return nil, false
	}

	return payload, true
}

// put overwrites the entry for key with the current timestamp.
func (d *DB) put(ctx context.Context, key string, payload []byte) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO entries (key, captured_at, payload) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET captured_at = excluded.captured_at, payload = excluded.payload`,
		key, d.nowFunc().UnixNano(), payload,
	)
	if err != nil {
		return fmt.Errorf("writing entry %s: %w", key, err)
	}

	return nil
}
