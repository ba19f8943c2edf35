package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/toolcache/observe"
)

// SlidingConfig configures a SlidingCache.
type SlidingConfig struct {
	// Size is the maximum number of live entries. Required, must be positive.
	Size int

	// TTL is how long an entry stays live after its last Set.
	// Zero means entries never expire.
	TTL time.Duration

	// CleanupInterval enables a background sweep of expired entries.
	// Zero disables it; lazy expiry on read still applies.
	CleanupInterval time.Duration
}

// Validate checks the configuration.
func (c SlidingConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, c.Size)
	}
	if c.TTL < 0 {
		return fmt.Errorf("%w: ttl %s", ErrInvalidTTL, c.TTL)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("%w: cleanup interval %s", ErrInvalidTTL, c.CleanupInterval)
	}
	return nil
}

// SlidingCache is a size- and TTL-bounded in-memory cache.
//
// Entries are ordered by their last Set. Overflow evicts the front of that
// order (FIFO by insertion/update, not LRU: reads never reorder). Because
// every entry shares one TTL, the front is also the next entry to expire.
type SlidingCache[V any] struct {
	mu      sync.Mutex
	cfg     SlidingConfig
	items   map[string]*list.Element
	order   *list.List // Front = oldest Set
	opts    options
	closeMu sync.Mutex
	stop    context.CancelFunc
	done    chan struct{}
}

type slidingEntry[V any] struct {
	key   string
	value V
	setAt time.Time
}

// NewSlidingCache creates a SlidingCache and starts the background sweep if
// CleanupInterval is set. Call Close to stop it.
func NewSlidingCache[V any](cfg SlidingConfig, opts ...Option) (*SlidingCache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &SlidingCache[V]{
		cfg:   cfg,
		items: make(map[string]*list.Element),
		order: list.New(),
		opts:  newOptions("sliding", opts),
	}

	if cfg.CleanupInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		c.stop = cancel
		c.done = make(chan struct{})
		go c.sweepLoop(ctx)
	}

	return c, nil
}

// Get returns the live value for key. Expired entries are purged.
func (c *SlidingCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if !c.opts.enabled {
		return zero, false
	}

	c.mu.Lock()
	e, ok := c.liveLocked(ctx, key)
	c.mu.Unlock()

	c.opts.recorder.RecordLookup(ctx, c.opts.name, ok)
	if !ok {
		return zero, false
	}
	return e.value, true
}

// Set stores value and moves key to the back of the eviction order.
func (c *SlidingCache[V]) Set(ctx context.Context, key string, value V) error {
	if !c.opts.enabled {
		return nil
	}

	c.mu.Lock()
	now := c.opts.clock.Now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*slidingEntry[V])
		e.value = value
		e.setAt = now
		c.order.MoveToBack(el)
		c.mu.Unlock()
		c.opts.recorder.RecordSet(ctx, c.opts.name)
		return nil
	}

	c.purgeExpiredLocked(ctx, now)
	for len(c.items) >= c.cfg.Size {
		c.evictLocked(ctx, c.order.Front(), observe.EvictCapacity)
	}

	c.items[key] = c.order.PushBack(&slidingEntry[V]{key: key, value: value, setAt: now})
	c.mu.Unlock()

	c.opts.recorder.RecordSet(ctx, c.opts.name)
	return nil
}

// Has reports whether key holds a live entry.
func (c *SlidingCache[V]) Has(ctx context.Context, key string) bool {
	if !c.opts.enabled {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.liveLocked(ctx, key)
	return ok
}

// Delete removes key and reports whether a live entry was removed.
func (c *SlidingCache[V]) Delete(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false, nil
	}
	live := !c.expired(el.Value.(*slidingEntry[V]), c.opts.clock.Now())
	c.order.Remove(el)
	delete(c.items, key)
	return live, nil
}

// Clear removes every entry.
func (c *SlidingCache[V]) Clear(_ context.Context) error {
	c.mu.Lock()
	clear(c.items)
	c.order.Init()
	c.mu.Unlock()
	return nil
}

// Size returns the number of live entries.
func (c *SlidingCache[V]) Size(ctx context.Context) int {
	if !c.opts.enabled {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeExpiredLocked(ctx, c.opts.clock.Now())
	return len(c.items)
}

// Enabled reports whether the cache serves reads.
func (c *SlidingCache[V]) Enabled() bool {
	return c.opts.enabled
}

// Snapshot returns a copy of every live entry.
func (c *SlidingCache[V]) Snapshot(ctx context.Context) map[string]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeExpiredLocked(ctx, c.opts.clock.Now())

	out := make(map[string]V, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*slidingEntry[V])
		out[e.key] = e.value
	}
	return out
}

// Keys returns live keys from oldest to newest Set.
func (c *SlidingCache[V]) Keys(ctx context.Context) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeExpiredLocked(ctx, c.opts.clock.Now())

	keys := make([]string, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*slidingEntry[V]).key)
	}
	return keys
}

// Config returns the cache configuration.
func (c *SlidingCache[V]) Config() SlidingConfig {
	return c.cfg
}

// Close stops the background sweep. Safe to call multiple times.
func (c *SlidingCache[V]) Close() error {
	c.closeMu.Lock()
	stop := c.stop
	c.stop = nil
	c.closeMu.Unlock()

	if stop != nil {
		stop()
		<-c.done
	}
	return nil
}

func (c *SlidingCache[V]) sweepLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.purgeExpiredLocked(ctx, c.opts.clock.Now())
			c.mu.Unlock()
		}
	}
}

// liveLocked returns the entry for key if live, purging it if expired.
func (c *SlidingCache[V]) liveLocked(ctx context.Context, key string) (*slidingEntry[V], bool) {
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*slidingEntry[V])
	if c.expired(e, c.opts.clock.Now()) {
		c.evictLocked(ctx, el, observe.EvictExpired)
		return nil, false
	}
	return e, true
}

// purgeExpiredLocked drops expired entries from the front of the order.
func (c *SlidingCache[V]) purgeExpiredLocked(ctx context.Context, now time.Time) {
	if c.cfg.TTL <= 0 {
		return
	}
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		if !c.expired(el.Value.(*slidingEntry[V]), now) {
			return
		}
		c.evictLocked(ctx, el, observe.EvictExpired)
	}
}

func (c *SlidingCache[V]) evictLocked(ctx context.Context, el *list.Element, reason string) {
	if el == nil {
		return
	}
	e := el.Value.(*slidingEntry[V])
	c.order.Remove(el)
	delete(c.items, e.key)

	c.opts.recorder.RecordEviction(ctx, c.opts.name, reason)
	c.opts.logger.Debug(ctx, "cache entry evicted",
		observe.Field{Key: "key", Value: e.key},
		observe.Field{Key: "reason", Value: reason},
	)
}

func (c *SlidingCache[V]) expired(e *slidingEntry[V], now time.Time) bool {
	return c.cfg.TTL > 0 && now.Sub(e.setAt) >= c.cfg.TTL
}

// Ensure SlidingCache implements SnapshotStore
var _ SnapshotStore[int] = (*SlidingCache[int])(nil)
