package cache

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func BenchmarkUnconstrainedCache_Get_Hit(b *testing.B) {
	c := NewUnconstrainedCache[[]byte]()
	ctx := context.Background()
	_ = c.Set(ctx, "bench-key", []byte("bench-value"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "bench-key")
	}
}

func BenchmarkUnconstrainedCache_Concurrent_ReadHeavy(b *testing.B) {
	c := NewUnconstrainedCache[[]byte]()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		_ = c.Set(ctx, strconv.Itoa(i), []byte("v"))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := strconv.Itoa(i % 100)
			if i%10 == 0 {
				_ = c.Set(ctx, key, []byte("v"))
			} else {
				_, _ = c.Get(ctx, key)
			}
			i++
		}
	})
}

func BenchmarkSlidingCache_Set_Evicting(b *testing.B) {
	c, _ := NewSlidingCache[int](SlidingConfig{Size: 1000, TTL: time.Minute})
	defer c.Close()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, strconv.Itoa(i), i)
	}
}

func BenchmarkSlidingCache_Get_Hit(b *testing.B) {
	c, _ := NewSlidingCache[int](SlidingConfig{Size: 1000, TTL: time.Minute})
	defer c.Close()
	ctx := context.Background()
	_ = c.Set(ctx, "k", 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Get(ctx, "k")
	}
}

func BenchmarkFileCache_Set(b *testing.B) {
	ctx := context.Background()
	c, err := NewFileCache[string](ctx, FileConfig{FullPath: b.TempDir() + "/bench.json"})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Set(ctx, strconv.Itoa(i%50), "value")
	}
}

func BenchmarkMemoizer_Hit(b *testing.B) {
	m, _ := NewMemoizer(Plain(func(_ context.Context, n int) (int, error) {
		return n, nil
	}), MemoConfig[int, int]{Policy: DefaultPolicy()})
	ctx := context.Background()
	_, _ = m.Do(ctx, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Do(ctx, 1)
	}
}

func BenchmarkDefaultKeyer_Key(b *testing.B) {
	keyer := NewDefaultKeyer()
	input := map[string]any{"query": "test", "limit": 10, "tags": []any{"a", "b"}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key("bench-tool", input)
	}
}

func BenchmarkCacheMiddleware_Execute_Hit(b *testing.B) {
	store := NewUnconstrainedCache[[]byte]()
	mw, _ := NewCacheMiddleware(store, nil, MiddlewareConfig{})
	exec := func(_ context.Context, _ string, _ any) ([]byte, error) {
		return []byte("result"), nil
	}
	ctx := context.Background()
	input := map[string]any{"q": "x"}
	_, _ = mw.Execute(ctx, "tool", input, nil, exec)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mw.Execute(ctx, "tool", input, nil, exec)
	}
}

func BenchmarkValidateKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ValidateKey("cache:bench-tool:0123456789abcdef")
	}
}
