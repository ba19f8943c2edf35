// Package observe provides observability primitives for cache stores.
//
// It wires structured logging (zap), OpenTelemetry metrics and tracing, and
// exporter setup. Stores take a Logger, Recorder and Tracer through options;
// an Observer bundles all three from a single Config.
package observe
