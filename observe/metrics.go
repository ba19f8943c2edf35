package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records cache activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly and never block the cache operation.
// - Errors: implementations must not panic.
type Recorder interface {
	// RecordLookup records a read against a store.
	RecordLookup(ctx context.Context, store string, hit bool)

	// RecordSet records an accepted write.
	RecordSet(ctx context.Context, store string)

	// RecordEviction records an entry removed by policy (capacity or expiry).
	RecordEviction(ctx context.Context, store string, reason string)

	// RecordPersist records a snapshot load or save.
	RecordPersist(ctx context.Context, store string, op string, duration time.Duration, err error)
}

type otelRecorder struct {
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	sets        metric.Int64Counter
	evictions   metric.Int64Counter
	persistErrs metric.Int64Counter
	persistHist metric.Float64Histogram
}

// NewRecorder creates a Recorder that reports through the given meter.
func NewRecorder(meter metric.Meter) (Recorder, error) {
	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Number of cache lookups that found a live entry"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Number of cache lookups that found nothing"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	sets, err := meter.Int64Counter(
		"cache.sets",
		metric.WithDescription("Number of accepted cache writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Number of entries evicted by capacity or expiry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	persistErrs, err := meter.Int64Counter(
		"cache.persist.errors",
		metric.WithDescription("Number of failed snapshot loads or saves"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	persistHist, err := meter.Float64Histogram(
		"cache.persist.duration_ms",
		metric.WithDescription("Snapshot load/save duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelRecorder{
		hits:        hits,
		misses:      misses,
		sets:        sets,
		evictions:   evictions,
		persistErrs: persistErrs,
		persistHist: persistHist,
	}, nil
}

func (r *otelRecorder) RecordLookup(ctx context.Context, store string, hit bool) {
	opt := metric.WithAttributes(attribute.String("cache.name", store))
	if hit {
		r.hits.Add(ctx, 1, opt)
		return
	}
	r.misses.Add(ctx, 1, opt)
}

func (r *otelRecorder) RecordSet(ctx context.Context, store string) {
	r.sets.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", store)))
}

func (r *otelRecorder) RecordEviction(ctx context.Context, store string, reason string) {
	r.evictions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.name", store),
		attribute.String("reason", reason),
	))
}

func (r *otelRecorder) RecordPersist(ctx context.Context, store string, op string, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("cache.name", store),
		attribute.String("op", op),
	)
	if err != nil {
		r.persistErrs.Add(ctx, 1, opt)
	}
	r.persistHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// NopRecorder returns a Recorder that does nothing.
func NopRecorder() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) RecordLookup(context.Context, string, bool)                          {}
func (nopRecorder) RecordSet(context.Context, string)                                   {}
func (nopRecorder) RecordEviction(context.Context, string, string)                      {}
func (nopRecorder) RecordPersist(context.Context, string, string, time.Duration, error) {}
