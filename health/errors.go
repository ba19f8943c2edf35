package health

import "errors"

var (
	// ErrCheckFailed is returned by Report.Err when any check is unhealthy.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrNoCheckers indicates Run was given nothing to check.
	ErrNoCheckers = errors.New("health: no checkers registered")

	// ErrNilChecker indicates Run was given a nil checker.
	ErrNilChecker = errors.New("health: nil checker")

	// ErrDuplicateChecker indicates two checkers share a name.
	ErrDuplicateChecker = errors.New("health: duplicate checker name")
)
