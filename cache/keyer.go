package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer generates deterministic cache keys from a namespace and an input.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(namespace string, input any) (string, error)
}

// DefaultKeyer generates SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
// Format: cache:<namespace>:<hash>
// where hash is the first 16 hex characters of SHA-256(canonical JSON(input)).
func (k *DefaultKeyer) Key(namespace string, input any) (string, error) {
	sum, err := hashInput(input, 8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("cache:%s:%s", namespace, sum), nil
}

// KeyFunc derives a memoization key from a call argument.
type KeyFunc[A any] func(arg A) (string, error)

// singletonKey is the slot every call maps to under SingletonKey.
const singletonKey = "singleton"

// ArgsKey is the default key strategy: a hash of the argument's canonical
// JSON. Slices and struct fields are order-sensitive; map keys are not.
// Arguments that cannot be JSON-encoded need a custom KeyFunc.
func ArgsKey[A any]() KeyFunc[A] {
	return func(arg A) (string, error) {
		sum, err := hashInput(arg, 16)
		if err != nil {
			return "", err
		}
		return "args:" + sum, nil
	}
}

// SingletonKey ignores the argument so the target caches exactly one value,
// e.g. a credential with no meaningful inputs.
func SingletonKey[A any]() KeyFunc[A] {
	return func(A) (string, error) {
		return singletonKey, nil
	}
}

// hashInput returns the hex of the first n bytes of SHA-256(canonical(input)).
func hashInput(input any, n int) (string, error) {
	canonical, err := canonicalize(input)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize input: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:n]), nil
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
