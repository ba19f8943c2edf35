package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSliding(t *testing.T, cfg SlidingConfig, opts ...Option) *SlidingCache[int] {
	t.Helper()
	c, err := NewSlidingCache[int](cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSlidingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SlidingConfig
		wantErr error
	}{
		{"valid", SlidingConfig{Size: 10, TTL: time.Minute}, nil},
		{"no ttl", SlidingConfig{Size: 1}, nil},
		{"zero size", SlidingConfig{Size: 0, TTL: time.Minute}, ErrInvalidSize},
		{"negative size", SlidingConfig{Size: -1}, ErrInvalidSize},
		{"negative ttl", SlidingConfig{Size: 1, TTL: -time.Second}, ErrInvalidTTL},
		{"negative interval", SlidingConfig{Size: 1, CleanupInterval: -time.Second}, ErrInvalidTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSlidingCache[int](tt.cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSlidingCache_EvictsOldestInsertion(t *testing.T) {
	ctx := context.Background()
	c := newTestSliding(t, SlidingConfig{Size: 3})

	for i, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.Set(ctx, k, i))
	}

	assert.Equal(t, 3, c.Size(ctx))
	assert.False(t, c.Has(ctx, "a"), "oldest entry should be evicted")
	assert.Equal(t, []string{"b", "c", "d"}, c.Keys(ctx))
}

func TestSlidingCache_UpdateRefreshesOrder(t *testing.T) {
	ctx := context.Background()
	c := newTestSliding(t, SlidingConfig{Size: 3})

	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	require.NoError(t, c.Set(ctx, "c", 3))
	require.NoError(t, c.Set(ctx, "a", 10)) // a moves to the back
	require.NoError(t, c.Set(ctx, "d", 4))

	assert.False(t, c.Has(ctx, "b"), "b is now the oldest write")
	v, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestSlidingCache_ReadsDoNotReorder(t *testing.T) {
	ctx := context.Background()
	c := newTestSliding(t, SlidingConfig{Size: 2})

	require.NoError(t, c.Set(ctx, "a", 1))
	require.NoError(t, c.Set(ctx, "b", 2))
	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", 3))

	assert.False(t, c.Has(ctx, "a"), "a read must not protect a from eviction")
	assert.True(t, c.Has(ctx, "b"))
}

func TestSlidingCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSliding(t, SlidingConfig{Size: 10, TTL: time.Minute}, WithClock(clock))

	require.NoError(t, c.Set(ctx, "k", 1))
	clock.Advance(59 * time.Second)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok, "entry should be live before TTL")

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "entry should be expired at TTL")
	assert.False(t, c.Has(ctx, "k"))
	assert.Equal(t, 0, c.Size(ctx))
}

func TestSlidingCache_SetResetsTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSliding(t, SlidingConfig{Size: 10, TTL: time.Minute}, WithClock(clock))

	require.NoError(t, c.Set(ctx, "k", 1))
	clock.Advance(45 * time.Second)
	require.NoError(t, c.Set(ctx, "k", 2))
	clock.Advance(45 * time.Second)

	v, ok := c.Get(ctx, "k")
	assert.True(t, ok, "overwrite restarts the TTL")
	assert.Equal(t, 2, v)
}

func TestSlidingCache_ExpiredMakeRoomBeforeCapacity(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSliding(t, SlidingConfig{Size: 2, TTL: time.Minute}, WithClock(clock))

	require.NoError(t, c.Set(ctx, "old", 1))
	clock.Advance(30 * time.Second)
	require.NoError(t, c.Set(ctx, "mid", 2))
	clock.Advance(31 * time.Second) // old is expired, mid is not
	require.NoError(t, c.Set(ctx, "new", 3))

	assert.True(t, c.Has(ctx, "mid"), "expired entry should be purged instead of a live one")
	assert.True(t, c.Has(ctx, "new"))
	assert.Equal(t, 2, c.Size(ctx))
}

func TestSlidingCache_DeleteExpiredReportsFalse(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSliding(t, SlidingConfig{Size: 2, TTL: time.Minute}, WithClock(clock))

	require.NoError(t, c.Set(ctx, "k", 1))
	clock.Advance(2 * time.Minute)

	removed, err := c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSlidingCache_SnapshotSkipsExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSliding(t, SlidingConfig{Size: 5, TTL: time.Minute}, WithClock(clock))

	require.NoError(t, c.Set(ctx, "a", 1))
	clock.Advance(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "b", 2))

	assert.Equal(t, map[string]int{"b": 2}, c.Snapshot(ctx))
}

func TestSlidingCache_BackgroundSweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := newTestSliding(t, SlidingConfig{Size: 5, TTL: time.Minute, CleanupInterval: 5 * time.Millisecond},
		WithClock(clock))

	require.NoError(t, c.Set(ctx, "k", 1))
	clock.Advance(time.Hour)

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.items) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSlidingCache_CloseIdempotent(t *testing.T) {
	c, err := NewSlidingCache[int](SlidingConfig{Size: 1, TTL: time.Second, CleanupInterval: time.Millisecond})
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestSlidingCache_NeverExceedsSize(t *testing.T) {
	ctx := context.Background()
	c := newTestSliding(t, SlidingConfig{Size: 7})

	for i := 0; i < 100; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i%13), i))
		require.LessOrEqual(t, c.Size(ctx), 7)
	}
}

// tickingClock advances by one millisecond on every read.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func TestSlidingCache_ConcurrentSetsKeepOrder(t *testing.T) {
	ctx := context.Background()
	clock := &tickingClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestSliding(t, SlidingConfig{Size: 32, TTL: time.Hour}, WithClock(clock))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = c.Set(ctx, fmt.Sprintf("g%d-k%d", g, i%50), i)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(ctx), 32)

	c.mu.Lock()
	defer c.mu.Unlock()
	var prev time.Time
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*slidingEntry[int])
		assert.False(t, e.setAt.Before(prev), "entry %s is older than the one ahead of it", e.key)
		prev = e.setAt
	}
}
