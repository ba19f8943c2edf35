// Package cache provides pluggable key/value stores and memoization.
//
// Every backend implements Store: UnconstrainedCache (unbounded map),
// SlidingCache (size and TTL bounded, FIFO by last write) and FileCache (any
// SnapshotStore mirrored to a JSON file). Memoizer caches the results of a
// function in any Store, with TTL policies that the function can override
// per call. MethodSet gives each instance its own memoized methods.
// CacheMiddleware caches tool executions, skipping tools with unsafe tags.
//
// Stores can be disabled with WithEnabled(false): writes are dropped and
// reads always miss.
package cache
