package cache

import (
	"context"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Store is the key/value contract every backend implements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: in-memory backends may ignore ctx; a cancelled ctx never tears
//   down a mutation that has already started.
// - Errors: Get, Has and Size never error. Absence is reported as (zero, false).
// - Expiry: an expired entry is invisible to every read, purged or not.
// - Enabled: when Enabled reports false, no read ever returns a stored value.
type Store[V any] interface {
	// Get returns the live value for key. Missing and expired look the same.
	Get(ctx context.Context, key string) (V, bool)

	// Set stores value under key, overwriting and refreshing any TTL baseline.
	Set(ctx context.Context, key string, value V) error

	// Has reports whether key holds a live entry.
	Has(ctx context.Context, key string) bool

	// Delete removes key and reports whether a live entry was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every entry. Idempotent.
	Clear(ctx context.Context) error

	// Size returns the number of live entries.
	Size(ctx context.Context) int

	// Enabled reports whether the store serves reads.
	Enabled() bool
}

// Snapshotter exposes a copy of every live entry.
type Snapshotter[V any] interface {
	Snapshot(ctx context.Context) map[string]V
}

// SnapshotStore is a Store that can enumerate its contents.
// FileCache requires one to persist the full state after each mutation.
type SnapshotStore[V any] interface {
	Store[V]
	Snapshotter[V]
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
