// Package cache implements a time-boxed memoization layer keyed by logical
// resource name, used to avoid re-fetching unchanged banking data within a
// session. Two implementations exist: an in-memory map and a sqlite-backed
// store that survives across short-lived CLI invocations.
package cache

import (
	"context"
	"strings"
	"time"
)

// DefaultTTL is the fixed expiration window for cache entries.
const DefaultTTL = 5 * time.Minute

// Producer fetches the value for a key on a cache miss. Failures propagate
// uncached.
type Producer func(ctx context.Context) ([]byte, error)

// Store is the resource cache contract. Concurrent GetOrFetch calls for the
// same key share a single producer invocation. InvalidateAll clears every
// entry; producer calls already in flight are unaffected, only future
// lookups see the empty cache.
type Store interface {
	GetOrFetch(ctx context.Context, key string, producer Producer) ([]byte, error)
	InvalidateAll() error
}

// Key composes a deterministic cache key from resource kind and identifying
// parameters, so identical logical requests collide and reuse the entry.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// BanksKey is the cache key for the bank list.
func BanksKey() string { return "banks" }

// AccountsKey is the cache key for a bank's account list.
func AccountsKey(bankID string) string { return Key("accounts", bankID) }

// TransactionsKey is the cache key for an account's transactions under a view.
func TransactionsKey(bankID, accountID, viewID string) string {
	return Key("transactions", bankID, accountID, viewID)
}
