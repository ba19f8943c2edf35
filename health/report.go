package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Report is the combined outcome of several checks.
type Report struct {
	Status Status            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

// Err returns ErrCheckFailed if any check is unhealthy.
func (r Report) Err() error {
	if r.Status == StatusUnhealthy {
		return ErrCheckFailed
	}
	return nil
}

// Run executes checkers in parallel. Each gets at most timeout when
// timeout > 0; a check that overruns is reported unhealthy.
func Run(ctx context.Context, timeout time.Duration, checkers ...Checker) (Report, error) {
	if len(checkers) == 0 {
		return Report{}, ErrNoCheckers
	}
	seen := make(map[string]struct{}, len(checkers))
	for i, c := range checkers {
		if c == nil {
			return Report{}, fmt.Errorf("%w at position %d", ErrNilChecker, i)
		}
		if _, dup := seen[c.Name()]; dup {
			return Report{}, fmt.Errorf("%w: %s", ErrDuplicateChecker, c.Name())
		}
		seen[c.Name()] = struct{}{}
	}

	results := make(map[string]Result, len(checkers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := runCheck(ctx, c, timeout)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	return Report{Status: Overall(results), Checks: results}, nil
}

// Overall returns the worst status in results. An empty set is healthy.
func Overall(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

func runCheck(ctx context.Context, c Checker, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- c.Check(ctx)
	}()

	select {
	case res := <-done:
		return res.WithDuration(time.Since(start))
	case <-ctx.Done():
		return Unhealthy("check timed out", ErrCheckTimeout).WithDuration(time.Since(start))
	}
}
