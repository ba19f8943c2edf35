package config

import (
	"context"
	"io"

	"github.com/jonwraymond/toolcache/cache"
	"github.com/jonwraymond/toolcache/observe"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Build constructs the store described by cfg. The returned Closer stops
// background sweeping and must be closed when the store is discarded.
func Build[V any](ctx context.Context, cfg StoreConfig, opts ...cache.Option) (cache.Store[V], io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.Name != "" {
		opts = append([]cache.Option{cache.WithName(cfg.Name)}, opts...)
	}
	if cfg.Disabled {
		opts = append(opts, cache.WithEnabled(false))
	}

	switch cfg.kind() {
	case KindSliding:
		s, err := cache.NewSlidingCache[V](cfg.sliding(), opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case KindFile:
		fileCfg := cache.FileConfig{FullPath: cfg.Path, Indent: cfg.Indent}
		if cfg.Backend != KindSliding {
			fc, err := cache.NewFileCache[V](ctx, fileCfg, opts...)
			if err != nil {
				return nil, nil, err
			}
			return fc, nopCloser{}, nil
		}
		s, err := cache.NewSlidingCache[V](cfg.sliding(), opts...)
		if err != nil {
			return nil, nil, err
		}
		fc, err := cache.FileCacheFromProvider[V](ctx, s, fileCfg, opts...)
		if err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		return fc, s, nil

	default:
		return cache.NewUnconstrainedCache[V](opts...), nopCloser{}, nil
	}
}

// CacheOptions builds the logger and, when telemetry names a service, an
// Observer. Logs go to w. shutdown flushes exporters and is never nil.
func (f *File) CacheOptions(ctx context.Context, w io.Writer) (opts []cache.Option, shutdown func(context.Context) error, err error) {
	shutdown = func(context.Context) error { return nil }
	logger := observe.NewLoggerWithWriter(f.Log.Level, w)

	if f.Telemetry.ServiceName == "" {
		return []cache.Option{cache.WithLogger(logger)}, shutdown, nil
	}

	obs, err := observe.NewObserver(ctx, f.Telemetry)
	if err != nil {
		return nil, shutdown, err
	}
	opts = append(opts, cache.WithObserver(obs))
	if !f.Telemetry.Logging.Enabled {
		opts = append(opts, cache.WithLogger(logger))
	}
	return opts, obs.Shutdown, nil
}
