package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/toolcache/cache"
)

// Resolver resolves secret references using registered providers.
//
// Values with the prefix "secretref:" are resolved via providers.
// Other values are returned after strict environment expansion.
type Resolver struct {
	mu        sync.RWMutex
	providers map[string]Provider
	strict    bool

	// memo is nil unless the resolver was built with NewCachedResolver.
	memo  *cache.Memoizer[secretRef, string]
	store *cache.SlidingCache[cache.Entry[string]]
}

type secretRef struct {
	Provider string
	Ref      string
}

// CacheConfig bounds a caching Resolver.
type CacheConfig struct {
	// TTL is how long a resolved secret is reused. Required.
	TTL time.Duration

	// Size caps the number of cached secrets. Default: 256.
	Size int
}

// NewResolver creates a resolver.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NewCachedResolver creates a resolver that reuses each provider:ref lookup
// for cfg.TTL. Failed lookups are never cached.
func NewCachedResolver(strict bool, cfg CacheConfig, providers ...Provider) (*Resolver, error) {
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: secret cache ttl must be positive", cache.ErrInvalidTTL)
	}
	if cfg.Size == 0 {
		cfg.Size = 256
	}

	store, err := cache.NewSlidingCache[cache.Entry[string]](cache.SlidingConfig{Size: cfg.Size},
		cache.WithName("secrets"))
	if err != nil {
		return nil, err
	}

	r := NewResolver(strict, providers...)
	memo, err := cache.NewMemoizer(r.lookup, cache.MemoConfig[secretRef, string]{
		Key: func(s secretRef) (string, error) {
			return s.Provider + ":" + s.Ref, nil
		},
		Policy:       cache.Policy{DefaultTTL: cfg.TTL},
		NewStore:     func() (cache.Store[cache.Entry[string]], error) { return store, nil },
		SingleFlight: true,
	}, cache.WithName("secrets"))
	if err != nil {
		return nil, err
	}

	r.memo = memo
	r.store = store
	return r, nil
}

// Register registers a provider with the resolver.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[provider.Name()] = provider
}

// Forget drops the cached value for one reference so the next lookup goes
// back to the provider. Returns false if nothing was cached.
func (r *Resolver) Forget(ctx context.Context, providerName, ref string) bool {
	if r == nil || r.memo == nil {
		return false
	}
	removed, _ := r.memo.Invalidate(ctx, secretRef{Provider: providerName, Ref: ref})
	return removed
}

// Purge drops every cached secret.
func (r *Resolver) Purge(ctx context.Context) error {
	if r == nil || r.memo == nil {
		return nil
	}
	return r.memo.Clear(ctx)
}

// Cached reports how many secrets are currently cached.
func (r *Resolver) Cached(ctx context.Context) int {
	if r == nil || r.store == nil {
		return 0
	}
	return r.store.Size(ctx)
}

// ResolveValue resolves environment variables and secret refs in value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveSingle(ctx, providerName, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveSlice resolves each value in values.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	resolved := make([]string, len(values))
	for i, v := range values {
		out, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		resolved[i] = out
	}
	return resolved, nil
}

// ResolveMap resolves each string value in input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// Close closes every registered provider and stops the secret cache.
func (r *Resolver) Close() error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, prefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *Resolver) resolveSingle(ctx context.Context, providerName string, ref string) (string, error) {
	if strings.TrimSpace(providerName) == "" {
		return "", errors.New("secret provider name is required")
	}
	if strings.TrimSpace(ref) == "" {
		return "", errors.New("secret ref is required")
	}

	s := secretRef{Provider: providerName, Ref: ref}
	if r.memo != nil {
		return r.memo.Do(ctx, s)
	}
	return r.lookup(ctx, nil, s)
}

// lookup asks the provider. It doubles as the memoized computation.
func (r *Resolver) lookup(ctx context.Context, _ *cache.Call, s secretRef) (string, error) {
	r.mu.RLock()
	provider, ok := r.providers[s.Provider]
	r.mu.RUnlock()
	if !ok || provider == nil {
		return "", fmt.Errorf("secret provider %q is not registered", s.Provider)
	}

	resolved, err := provider.Resolve(ctx, s.Ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("secret provider %q returned empty value", s.Provider)
	}
	return resolved, nil
}

var inlineSecretRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`) // provider:ref

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	out := value
	for i := len(matches) - 1; i >= 0; i-- {
		match := matches[i]

		// Match indexes are stable because we replace from end to start.
		providerName := out[match[2]:match[3]]
		ref := out[match[4]:match[5]]

		resolved, err := r.resolveSingle(ctx, providerName, ref)
		if err != nil {
			return "", err
		}

		out = out[:match[0]] + resolved + out[match[1]:]
	}
	return out, nil
}
