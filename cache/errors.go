package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrNilFunc    = errors.New("cache: function is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Configuration errors. Constructors fail fast with one of these; nothing is
// silently clamped.
var (
	// ErrInvalidConfig is wrapped by every construction-time error.
	ErrInvalidConfig = errors.New("cache: invalid configuration")

	// ErrInvalidSize indicates a non-positive capacity.
	ErrInvalidSize = fmt.Errorf("%w: size must be positive", ErrInvalidConfig)

	// ErrInvalidTTL indicates a negative duration.
	ErrInvalidTTL = fmt.Errorf("%w: duration must not be negative", ErrInvalidConfig)

	// ErrInvalidPath indicates a snapshot path that cannot be used.
	ErrInvalidPath = fmt.Errorf("%w: invalid snapshot path", ErrInvalidConfig)
)

// ErrPersistence matches every *PersistenceError via errors.Is.
var ErrPersistence = errors.New("cache: persistence failed")

// PersistenceError reports a failed snapshot load or save.
//
// After a failed save the in-memory store may hold state that is not on disk;
// the next successful save brings them back in line.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports true for ErrPersistence so callers need not type-assert.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
