package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolcache/observe"
)

// Entry is a memoized value with its lifetime. A zero ExpiresAt never expires.
type Entry[V any] struct {
	Value     V         `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Expired reports whether the entry is no longer live at now.
func (e Entry[V]) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Call is handed to a computation so it can shape how its own result is cached.
type Call struct {
	key  string
	ttl  time.Duration
	skip bool
}

// Key returns the derived cache key for this call.
func (c *Call) Key() string {
	return c.key
}

// SetTTL sets the lifetime of the result being computed. Zero restores the
// policy default. The policy's MaxTTL still applies.
func (c *Call) SetTTL(d time.Duration) {
	c.ttl = d
}

// TTL returns the lifetime requested so far (zero if none).
func (c *Call) TTL() time.Duration {
	return c.ttl
}

// Skip prevents this result from being cached.
func (c *Call) Skip() {
	c.skip = true
}

// ComputeFunc is a memoizable computation.
type ComputeFunc[A, R any] func(ctx context.Context, call *Call, arg A) (R, error)

// Plain adapts a function that does not need the Call handle.
func Plain[A, R any](fn func(context.Context, A) (R, error)) ComputeFunc[A, R] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, _ *Call, arg A) (R, error) {
		return fn(ctx, arg)
	}
}

// MemoConfig configures a Memoizer.
type MemoConfig[A, R any] struct {
	// Key derives the cache key. Default: ArgsKey.
	Key KeyFunc[A]

	// Policy sets entry lifetimes. The zero Policy never expires entries.
	Policy Policy

	// NewStore creates the private backing store on first use.
	// Default: an UnconstrainedCache.
	NewStore func() (Store[Entry[R]], error)

	// Store is a backing store shared with other memoizers. Keys are prefixed
	// with Scope, and Clear removes only this scope's keys. Overrides NewStore.
	Store SnapshotStore[Entry[R]]

	// Scope namespaces keys in a shared Store. Required when Store is set.
	Scope string

	// SingleFlight collapses concurrent calls for the same key into one
	// computation. Off by default: concurrent misses may all compute.
	SingleFlight bool
}

// Memoizer caches the results of a computation keyed by its argument.
//
// Contract:
// - Concurrency: safe for concurrent use. Without SingleFlight, concurrent
//   misses on one key may each run the computation.
// - Errors: computation errors propagate unchanged and are never cached.
// - Enabled: a disabled Memoizer always runs the computation and never
//   reads or writes its store.
type Memoizer[A, R any] struct {
	fn      ComputeFunc[A, R]
	cfg     MemoConfig[A, R]
	opts    options
	enabled atomic.Bool
	group   singleflight.Group

	mu    sync.Mutex
	store Store[Entry[R]]
}

// NewMemoizer wraps fn. The backing store is created lazily on first use.
func NewMemoizer[A, R any](fn ComputeFunc[A, R], cfg MemoConfig[A, R], opts ...Option) (*Memoizer[A, R], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store != nil && strings.TrimSpace(cfg.Scope) == "" {
		return nil, fmt.Errorf("%w: scope is required with a shared store", ErrInvalidConfig)
	}
	if cfg.Key == nil {
		cfg.Key = ArgsKey[A]()
	}

	name := "memo"
	if cfg.Scope != "" {
		name = cfg.Scope
	}

	m := &Memoizer[A, R]{
		fn:   fn,
		cfg:  cfg,
		opts: newOptions(name, opts),
	}
	m.enabled.Store(m.opts.enabled)
	if cfg.Store != nil {
		m.store = cfg.Store
	}
	return m, nil
}

// Do returns the cached result for arg, computing and caching it on a miss.
func (m *Memoizer[A, R]) Do(ctx context.Context, arg A) (R, error) {
	if !m.Enabled() {
		return m.fn(ctx, &Call{}, arg)
	}

	key, err := m.key(arg)
	if err != nil {
		m.opts.logger.Warn(ctx, "cache key derivation failed, calling through",
			observe.Field{Key: "error", Value: err})
		return m.fn(ctx, &Call{}, arg)
	}

	store, err := m.backing()
	if err != nil {
		var zero R
		return zero, err
	}

	if e, ok := store.Get(ctx, key); ok && !e.Expired(m.opts.clock.Now()) {
		m.opts.recorder.RecordLookup(ctx, m.opts.name, true)
		return e.Value, nil
	}
	m.opts.recorder.RecordLookup(ctx, m.opts.name, false)

	if !m.cfg.SingleFlight {
		return m.compute(ctx, store, key, arg)
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		return m.compute(ctx, store, key, arg)
	})
	r, _ := v.(R)
	return r, err
}

// Func returns Do as a plain function value.
func (m *Memoizer[A, R]) Func() func(context.Context, A) (R, error) {
	return m.Do
}

// Invalidate drops the cached result for arg.
func (m *Memoizer[A, R]) Invalidate(ctx context.Context, arg A) (bool, error) {
	key, err := m.key(arg)
	if err != nil {
		return false, err
	}
	store := m.current()
	if store == nil {
		return false, nil
	}
	return store.Delete(ctx, key)
}

// Clear drops every result cached by this memoizer, and nothing else.
func (m *Memoizer[A, R]) Clear(ctx context.Context) error {
	if m.cfg.Store == nil {
		store := m.current()
		if store == nil {
			return nil
		}
		return store.Clear(ctx)
	}

	prefix := m.cfg.Scope + ":"
	for k := range m.cfg.Store.Snapshot(ctx) {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, err := m.cfg.Store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// SetEnabled turns memoization on or off.
func (m *Memoizer[A, R]) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// Enabled reports whether results are being cached.
func (m *Memoizer[A, R]) Enabled() bool {
	return m.enabled.Load()
}

func (m *Memoizer[A, R]) compute(ctx context.Context, store Store[Entry[R]], key string, arg A) (R, error) {
	call := &Call{key: key}
	v, err := m.fn(ctx, call, arg)
	if err != nil || call.skip {
		return v, err
	}

	now := m.opts.clock.Now()
	entry := Entry[R]{Value: v, CreatedAt: now}
	if ttl := m.cfg.Policy.EffectiveTTL(call.ttl); ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	if err := store.Set(ctx, key, entry); err != nil {
		m.opts.logger.Warn(ctx, "memoized result not stored",
			observe.Field{Key: "error", Value: err})
		return v, err
	}
	return v, nil
}

func (m *Memoizer[A, R]) key(arg A) (string, error) {
	key, err := m.cfg.Key(arg)
	if err != nil {
		return "", err
	}
	if m.cfg.Store != nil {
		key = m.cfg.Scope + ":" + key
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// backing returns the store, creating the private one on first use.
func (m *Memoizer[A, R]) backing() (Store[Entry[R]], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		return m.store, nil
	}

	if m.cfg.NewStore == nil {
		m.store = NewUnconstrainedCache[Entry[R]](
			WithName(m.opts.name),
			WithLogger(m.opts.logger),
			WithClock(m.opts.clock),
		)
		return m.store, nil
	}

	store, err := m.cfg.NewStore()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrNilStore
	}
	m.store = store
	return store, nil
}

// current returns the store without creating it.
func (m *Memoizer[A, R]) current() Store[Entry[R]] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}
