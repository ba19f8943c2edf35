package cache

import (
	"context"
	"maps"
	"sync"
)

// UnconstrainedCache is an in-memory map with no eviction and no TTL.
// It is the default backend for FileCache and the Memoizer.
type UnconstrainedCache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	opts    options
}

// NewUnconstrainedCache creates an empty unbounded cache.
func NewUnconstrainedCache[V any](opts ...Option) *UnconstrainedCache[V] {
	return &UnconstrainedCache[V]{
		entries: make(map[string]V),
		opts:    newOptions("unconstrained", opts),
	}
}

// Get retrieves a value. Returns (zero, false) on miss or when disabled.
func (c *UnconstrainedCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if !c.opts.enabled {
		return zero, false
	}

	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()

	c.opts.recorder.RecordLookup(ctx, c.opts.name, ok)
	if !ok {
		return zero, false
	}
	return v, true
}

// Set stores a value, overwriting any previous one. Disabled caches drop it.
func (c *UnconstrainedCache[V]) Set(ctx context.Context, key string, value V) error {
	if !c.opts.enabled {
		return nil
	}

	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()

	c.opts.recorder.RecordSet(ctx, c.opts.name)
	return nil
}

// Has reports whether key is present.
func (c *UnconstrainedCache[V]) Has(_ context.Context, key string) bool {
	if !c.opts.enabled {
		return false
	}
	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	return ok
}

// Delete removes key. Idempotent - no error on miss.
func (c *UnconstrainedCache[V]) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	return ok, nil
}

// Clear removes every entry.
func (c *UnconstrainedCache[V]) Clear(_ context.Context) error {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	return nil
}

// Size returns the exact entry count.
func (c *UnconstrainedCache[V]) Size(_ context.Context) int {
	if !c.opts.enabled {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Enabled reports whether the cache serves reads.
func (c *UnconstrainedCache[V]) Enabled() bool {
	return c.opts.enabled
}

// Snapshot returns a copy of every entry.
func (c *UnconstrainedCache[V]) Snapshot(_ context.Context) map[string]V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.entries)
}

// Ensure UnconstrainedCache implements SnapshotStore
var _ SnapshotStore[int] = (*UnconstrainedCache[int])(nil)
