package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrMethodType is returned when a method name is reused with different
// argument or result types.
var ErrMethodType = errors.New("cache: method registered with different types")

// MethodSet holds the memoized methods of one instance. Embed it (or keep
// one per instance) so every instance gets its own caches.
//
// The zero value is ready to use.
//
//	type Forecasts struct {
//		cache.MethodSet
//	}
//
//	func (f *Forecasts) For(ctx context.Context, city string) (Forecast, error) {
//		m, err := cache.Method(&f.MethodSet, "For", cache.Plain(f.fetch), cache.MemoConfig[string, Forecast]{})
//		if err != nil {
//			return Forecast{}, err
//		}
//		return m.Do(ctx, city)
//	}
type MethodSet struct {
	mu      sync.Mutex
	methods map[string]method
}

// method is the type-erased part of a Memoizer.
type method interface {
	Clear(ctx context.Context) error
	SetEnabled(enabled bool)
	Enabled() bool
}

// Method returns the Memoizer registered under name, creating it from fn,
// cfg and opts on first use. Later calls ignore fn, cfg and opts.
func Method[A, R any](set *MethodSet, name string, fn ComputeFunc[A, R], cfg MemoConfig[A, R], opts ...Option) (*Memoizer[A, R], error) {
	if set == nil {
		return nil, fmt.Errorf("%w: nil method set", ErrInvalidConfig)
	}

	set.mu.Lock()
	defer set.mu.Unlock()

	if existing, ok := set.methods[name]; ok {
		m, ok := existing.(*Memoizer[A, R])
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMethodType, name)
		}
		return m, nil
	}

	m, err := NewMemoizer(fn, cfg, append([]Option{WithName(name)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if set.methods == nil {
		set.methods = make(map[string]method)
	}
	set.methods[name] = m
	return m, nil
}

// Clear empties the cache of one method. Unknown names are a no-op.
func (s *MethodSet) Clear(ctx context.Context, name string) error {
	m := s.lookup(name)
	if m == nil {
		return nil
	}
	return m.Clear(ctx)
}

// ClearAll empties every method cache in the set.
func (s *MethodSet) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	methods := make([]method, 0, len(s.methods))
	for _, m := range s.methods {
		methods = append(methods, m)
	}
	s.mu.Unlock()

	var errs []error
	for _, m := range methods {
		if err := m.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetEnabled toggles one method's cache and reports whether name is known.
func (s *MethodSet) SetEnabled(name string, enabled bool) bool {
	m := s.lookup(name)
	if m == nil {
		return false
	}
	m.SetEnabled(enabled)
	return true
}

// Enabled reports whether the named method is registered and caching.
func (s *MethodSet) Enabled(name string) bool {
	m := s.lookup(name)
	return m != nil && m.Enabled()
}

// Methods returns the registered method names, sorted.
func (s *MethodSet) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *MethodSet) lookup(name string) method {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.methods[name]
}
