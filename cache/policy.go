package cache

import (
	"fmt"
	"time"
)

// Policy configures memoized entry lifetimes.
type Policy struct {
	// DefaultTTL is used when the computation does not set one.
	// Zero means entries never expire.
	DefaultTTL time.Duration

	// MaxTTL caps every TTL, including ones set at runtime.
	// Zero means no cap.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default memoization policy.
// DefaultTTL: 5 minutes, MaxTTL: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: 5 * time.Minute,
		MaxTTL:     1 * time.Hour,
	}
}

// ForeverPolicy keeps memoized values until they are cleared.
func ForeverPolicy() Policy {
	return Policy{}
}

// Validate rejects negative durations.
func (p Policy) Validate() error {
	if p.DefaultTTL < 0 || p.MaxTTL < 0 {
		return fmt.Errorf("%w: policy %s/%s", ErrInvalidTTL, p.DefaultTTL, p.MaxTTL)
	}
	return nil
}

// EffectiveTTL returns the TTL to use, applying defaults and clamping.
// A zero result means no expiry (possible only without MaxTTL).
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	if ttl <= 0 {
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && (ttl <= 0 || ttl > p.MaxTTL) {
		ttl = p.MaxTTL
	}

	return ttl
}
