// Package health reports on the state of cache stores and snapshot files.
//
// A Checker returns a Result with a Status of Healthy, Degraded or
// Unhealthy. StoreChecker inspects any cache.Store; FileChecker probes a
// FileCache snapshot path. Run executes several checkers in parallel under
// a per-check timeout and folds them into a Report whose Status is the
// worst individual status:
//
//	report, err := health.Run(ctx, 2*time.Second,
//	    health.NewStoreChecker("sliding", store, cfg.Size),
//	    health.NewFileChecker("snapshot", path),
//	)
//	if err == nil && report.Err() != nil {
//	    // at least one check is unhealthy
//	}
package health
