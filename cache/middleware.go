package cache

import (
	"context"
	"strings"

	"github.com/jonwraymond/toolcache/observe"
)

// ExecutorFunc is the function signature for tool execution.
type ExecutorFunc func(ctx context.Context, toolID string, input any) ([]byte, error)

// SkipRule determines whether to skip caching for a given tool.
// Returns true if caching should be skipped.
type SkipRule func(toolID string, tags []string) bool

// UnsafeTags are tags that indicate a tool has side effects and should not be cached.
var UnsafeTags = []string{"write", "danger", "unsafe", "mutation", "delete"}

// DefaultSkipRule skips caching for tools with unsafe tags.
// Tag matching is case-insensitive.
func DefaultSkipRule(_ string, tags []string) bool {
	for _, tag := range tags {
		tagLower := strings.ToLower(tag)
		for _, unsafe := range UnsafeTags {
			if tagLower == unsafe {
				return true
			}
		}
	}
	return false
}

// MiddlewareConfig configures a CacheMiddleware.
type MiddlewareConfig struct {
	// AllowUnsafe caches tools even when SkipRule matches.
	AllowUnsafe bool

	// SkipRule decides which tools bypass the cache. Default: DefaultSkipRule.
	SkipRule SkipRule
}

// CacheMiddleware wraps tool execution with caching. Entry lifetime and
// capacity belong to the store, usually a SlidingCache.
type CacheMiddleware struct {
	store Store[[]byte]
	keyer Keyer
	cfg   MiddlewareConfig
	opts  options
}

// NewCacheMiddleware creates a new cache middleware.
// A nil keyer uses DefaultKeyer.
func NewCacheMiddleware(store Store[[]byte], keyer Keyer, cfg MiddlewareConfig, opts ...Option) (*CacheMiddleware, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if cfg.SkipRule == nil {
		cfg.SkipRule = DefaultSkipRule
	}
	return &CacheMiddleware{
		store: store,
		keyer: keyer,
		cfg:   cfg,
		opts:  newOptions("tools", opts),
	}, nil
}

// Execute runs the tool with caching.
// On cache hit, returns cached result without calling executor.
// On cache miss, calls executor and caches the result.
// Errors are NOT cached.
func (m *CacheMiddleware) Execute(
	ctx context.Context,
	toolID string,
	input any,
	tags []string,
	executor ExecutorFunc,
) ([]byte, error) {
	if !m.cfg.AllowUnsafe && m.cfg.SkipRule(toolID, tags) {
		return executor(ctx, toolID, input)
	}

	if !m.opts.enabled || !m.store.Enabled() {
		return executor(ctx, toolID, input)
	}

	key, err := m.keyer.Key(toolID, input)
	if err != nil {
		m.opts.logger.Warn(ctx, "tool cache key failed, executing uncached",
			observe.Field{Key: "tool", Value: toolID},
			observe.Field{Key: "error", Value: err},
		)
		return executor(ctx, toolID, input)
	}

	if cached, ok := m.store.Get(ctx, key); ok {
		return cached, nil
	}

	result, err := executor(ctx, toolID, input)
	if err != nil {
		return result, err
	}

	// The tool succeeded; a failed write only costs a future miss.
	if err := m.store.Set(ctx, key, result); err != nil {
		m.opts.logger.Warn(ctx, "tool result not cached",
			observe.Field{Key: "tool", Value: toolID},
			observe.Field{Key: "error", Value: err},
		)
	}
	return result, nil
}
