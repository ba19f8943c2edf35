package cache

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestCacheKey_Validation tests key validation rules.
func TestCacheKey_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"valid key", "cache:ns:tool:abc123", nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "key\nwith\nnewlines", ErrInvalidKey},
		{"contains carriage return", "key\rwith\rreturns", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if err != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

// TestSentinelErrors verifies sentinel errors are distinct and have expected messages.
func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrNilStore", ErrNilStore, "cache: store is nil"},
		{"ErrNilFunc", ErrNilFunc, "cache: function is nil"},
		{"ErrInvalidKey", ErrInvalidKey, "cache: key is invalid"},
		{"ErrKeyTooLong", ErrKeyTooLong, "cache: key exceeds max length"},
		{"ErrPersistence", ErrPersistence, "cache: persistence failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("%s.Error() = %q, want %q", tt.name, tt.err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestConfigErrors_WrapInvalidConfig(t *testing.T) {
	for _, err := range []error{ErrInvalidSize, ErrInvalidTTL, ErrInvalidPath} {
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%v does not wrap ErrInvalidConfig", err)
		}
	}
}

func TestPersistenceError(t *testing.T) {
	err := error(&PersistenceError{Op: "save", Path: "/tmp/x.json", Err: fs.ErrPermission})

	if !errors.Is(err, ErrPersistence) {
		t.Error("errors.Is(err, ErrPersistence) = false")
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("PersistenceError should unwrap to the I/O error")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "save" {
		t.Errorf("errors.As failed or wrong op: %+v", pe)
	}
	if !strings.Contains(err.Error(), "/tmp/x.json") {
		t.Errorf("Error() = %q, want path included", err.Error())
	}
}

// Every backend must satisfy the Store contract.
var (
	_ Store[string]         = (*UnconstrainedCache[string])(nil)
	_ Store[string]         = (*SlidingCache[string])(nil)
	_ Store[string]         = (*FileCache[string])(nil)
	_ SnapshotStore[[]byte] = (*FileCache[[]byte])(nil)
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// storeFactories builds every backend for contract tests.
func storeFactories() map[string]func(t *testing.T, opts ...Option) Store[string] {
	return map[string]func(t *testing.T, opts ...Option) Store[string]{
		"unconstrained": func(_ *testing.T, opts ...Option) Store[string] {
			return NewUnconstrainedCache[string](opts...)
		},
		"sliding": func(t *testing.T, opts ...Option) Store[string] {
			c, err := NewSlidingCache[string](SlidingConfig{Size: 1000, TTL: time.Hour}, opts...)
			if err != nil {
				t.Fatalf("NewSlidingCache: %v", err)
			}
			t.Cleanup(func() { _ = c.Close() })
			return c
		},
		"file": func(t *testing.T, opts ...Option) Store[string] {
			c, err := NewFileCache[string](context.Background(),
				FileConfig{FullPath: t.TempDir() + "/cache.json"}, opts...)
			if err != nil {
				t.Fatalf("NewFileCache: %v", err)
			}
			return c
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			if _, ok := s.Get(ctx, "missing"); ok {
				t.Error("Get on empty store should miss")
			}
			if s.Has(ctx, "missing") {
				t.Error("Has on empty store should be false")
			}

			if err := s.Set(ctx, "a", "1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "a", "2"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			if got, ok := s.Get(ctx, "a"); !ok || got != "2" {
				t.Errorf("Get(a) = %q, %v; want 2, true", got, ok)
			}
			if s.Size(ctx) != 1 {
				t.Errorf("Size = %d, want 1", s.Size(ctx))
			}

			removed, err := s.Delete(ctx, "a")
			if err != nil || !removed {
				t.Errorf("Delete(a) = %v, %v; want true, nil", removed, err)
			}
			removed, err = s.Delete(ctx, "a")
			if err != nil || removed {
				t.Errorf("second Delete(a) = %v, %v; want false, nil", removed, err)
			}

			_ = s.Set(ctx, "b", "1")
			_ = s.Set(ctx, "c", "1")
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if err := s.Clear(ctx); err != nil {
				t.Fatalf("second Clear: %v", err)
			}
			if s.Size(ctx) != 0 {
				t.Errorf("Size after Clear = %d, want 0", s.Size(ctx))
			}
		})
	}
}

func TestStoreContract_Disabled(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, WithEnabled(false))

			if s.Enabled() {
				t.Fatal("Enabled() = true for disabled store")
			}
			if err := s.Set(ctx, "k", "v"); err != nil {
				t.Fatalf("Set on disabled store: %v", err)
			}
			if _, ok := s.Get(ctx, "k"); ok {
				t.Error("disabled store returned a value")
			}
			if s.Has(ctx, "k") {
				t.Error("disabled store reported Has")
			}
			if s.Size(ctx) != 0 {
				t.Errorf("disabled Size = %d, want 0", s.Size(ctx))
			}
		})
	}
}

func TestStoreContract_Concurrent(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					key := string(rune('a' + id))
					for j := 0; j < 50; j++ {
						_ = s.Set(ctx, key, key)
						s.Get(ctx, key)
						s.Has(ctx, key)
						s.Size(ctx)
					}
				}(i)
			}
			wg.Wait()

			if s.Size(ctx) != 8 {
				t.Errorf("Size = %d, want 8", s.Size(ctx))
			}
		})
	}
}
