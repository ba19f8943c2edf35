package cache

import (
	"time"

	"github.com/jonwraymond/toolcache/observe"
)

// Clock supplies the current time for TTL bookkeeping.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Option configures ambient behaviour shared by every backend and the Memoizer.
type Option func(*options)

type options struct {
	name     string
	enabled  bool
	clock    Clock
	logger   observe.Logger
	recorder observe.Recorder
	tracer   observe.Tracer
}

func newOptions(defaultName string, opts []Option) options {
	o := options{
		name:     defaultName,
		enabled:  true,
		clock:    SystemClock{},
		logger:   observe.NopLogger(),
		recorder: observe.NopRecorder(),
		tracer:   observe.NopTracer(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.logger = o.logger.With(observe.Field{Key: "cache.name", Value: o.name})
	return o
}

// WithName labels the store in logs, metrics and spans.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithEnabled turns the store or memoizer on or off. Disabled stores drop
// writes and always miss.
func WithEnabled(enabled bool) Option {
	return func(o *options) {
		o.enabled = enabled
	}
}

// WithClock replaces the wall clock, typically with a fake in tests.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r observe.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTracer sets the tracer used around snapshot I/O.
func WithTracer(t observe.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithObserver wires logger, recorder and tracer from an Observer.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) {
		if obs == nil {
			return
		}
		o.logger = obs.Logger()
		o.recorder = obs.Recorder()
		o.tracer = obs.CacheTracer()
	}
}
