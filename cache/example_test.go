package cache_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/toolcache/cache"
)

func ExampleNewUnconstrainedCache() {
	c := cache.NewUnconstrainedCache[string]()
	ctx := context.Background()

	_ = c.Set(ctx, "my-key", "hello")

	value, ok := c.Get(ctx, "my-key")
	fmt.Println("Value:", value, ok)

	removed, _ := c.Delete(ctx, "my-key")
	fmt.Println("Removed:", removed)
	// Output:
	// Value: hello true
	// Removed: true
}

func ExampleNewSlidingCache() {
	c, err := cache.NewSlidingCache[int](cache.SlidingConfig{Size: 2, TTL: time.Minute})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "a", 1)
	_ = c.Set(ctx, "b", 2)
	_ = c.Set(ctx, "c", 3) // a is the oldest write

	fmt.Println("Keys:", c.Keys(ctx))
	// Output:
	// Keys: [b c]
}

func ExampleNewFileCache() {
	dir, _ := os.MkdirTemp("", "cache-example")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "cache.json")
	ctx := context.Background()

	c, _ := cache.NewFileCache[string](ctx, cache.FileConfig{FullPath: path})
	_ = c.Set(ctx, "greeting", "hi")

	data, _ := os.ReadFile(path)
	fmt.Println(string(data))
	// Output:
	// {"greeting":"hi"}
}

func ExampleNewMemoizer() {
	calls := 0
	square := cache.Plain(func(_ context.Context, n int) (int, error) {
		calls++
		return n * n, nil
	})

	m, _ := cache.NewMemoizer(square, cache.MemoConfig[int, int]{Policy: cache.DefaultPolicy()})
	ctx := context.Background()

	a, _ := m.Do(ctx, 9)
	b, _ := m.Do(ctx, 9)
	fmt.Println(a, b, "calls:", calls)
	// Output:
	// 81 81 calls: 1
}

func ExampleCall_SetTTL() {
	// A computation that knows its own lifetime sets it at runtime.
	fetch := func(_ context.Context, call *cache.Call, _ struct{}) (string, error) {
		call.SetTTL(30 * time.Second)
		return "session-token", nil
	}

	m, _ := cache.NewMemoizer(fetch, cache.MemoConfig[struct{}, string]{
		Key: cache.SingletonKey[struct{}](),
	})

	token, _ := m.Do(context.Background(), struct{}{})
	fmt.Println(token)
	// Output:
	// session-token
}

type forecasts struct {
	cache.MethodSet
	fetches int
}

func (f *forecasts) For(ctx context.Context, city string) (string, error) {
	m, err := cache.Method(&f.MethodSet, "For", cache.Plain(f.fetch), cache.MemoConfig[string, string]{})
	if err != nil {
		return "", err
	}
	return m.Do(ctx, city)
}

func (f *forecasts) fetch(_ context.Context, city string) (string, error) {
	f.fetches++
	return "sunny in " + city, nil
}

func ExampleMethod() {
	ctx := context.Background()
	f := &forecasts{}

	_, _ = f.For(ctx, "Oslo")
	s, _ := f.For(ctx, "Oslo")
	fmt.Println(s, f.fetches)

	_ = f.Clear(ctx, "For")
	_, _ = f.For(ctx, "Oslo")
	fmt.Println(f.fetches)
	// Output:
	// sunny in Oslo 1
	// 2
}

func ExampleNewDefaultKeyer() {
	keyer := cache.NewDefaultKeyer()

	key1, _ := keyer.Key("github.search", map[string]any{"query": "test", "limit": 10})
	key2, _ := keyer.Key("github.search", map[string]any{"limit": 10, "query": "test"})
	fmt.Println("Key format:", key1[:14])
	fmt.Println("Map order ignored:", key1 == key2)
	// Output:
	// Key format: cache:github.s
	// Map order ignored: true
}

func ExamplePolicy_EffectiveTTL() {
	p := cache.Policy{DefaultTTL: 5 * time.Minute, MaxTTL: 10 * time.Minute}

	fmt.Println(p.EffectiveTTL(0))
	fmt.Println(p.EffectiveTTL(7 * time.Minute))
	fmt.Println(p.EffectiveTTL(time.Hour))
	// Output:
	// 5m0s
	// 7m0s
	// 10m0s
}

func ExampleNewCacheMiddleware() {
	store, _ := cache.NewSlidingCache[[]byte](cache.SlidingConfig{Size: 100, TTL: time.Minute})
	defer store.Close()
	mw, _ := cache.NewCacheMiddleware(store, nil, cache.MiddlewareConfig{})

	calls := 0
	exec := func(_ context.Context, _ string, _ any) ([]byte, error) {
		calls++
		return []byte(`{"ok":true}`), nil
	}

	ctx := context.Background()
	_, _ = mw.Execute(ctx, "search", map[string]any{"q": "go"}, []string{"read"}, exec)
	out, _ := mw.Execute(ctx, "search", map[string]any{"q": "go"}, []string{"read"}, exec)
	fmt.Println(string(out), "calls:", calls)

	_, _ = mw.Execute(ctx, "drop", nil, []string{"delete"}, exec)
	_, _ = mw.Execute(ctx, "drop", nil, []string{"delete"}, exec)
	fmt.Println("unsafe calls:", calls-1)
	// Output:
	// {"ok":true} calls: 1
	// unsafe calls: 2
}
