package credential

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/toolcache/cache"
)

// KeyProvider retrieves verification keys by key ID.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider returns the same key for every key ID.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

var _ KeyProvider = (*StaticKeyProvider)(nil)

// Claims are the verified contents of a token.
type Claims struct {
	Subject   string         `json:"sub,omitempty"`
	Issuer    string         `json:"iss,omitempty"`
	Audience  []string       `json:"aud,omitempty"`
	ExpiresAt time.Time      `json:"exp"`
	IssuedAt  time.Time      `json:"iat,omitzero"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Issuer and Audience are enforced when set.
	Issuer   string
	Audience string

	// Methods lists accepted signing algorithms. Default: HS256.
	Methods []string

	// Size caps remembered tokens. Default: 1024.
	Size int

	// MaxTTL caps how long a verification is remembered. Default: 5 minutes.
	MaxTTL time.Duration

	// Clock drives expiry checks. Default: the system clock.
	Clock cache.Clock
}

// Verifier validates tokens and remembers successful verifications.
type Verifier struct {
	keys  KeyProvider
	cfg   VerifierConfig
	store *cache.SlidingCache[cache.Entry[Claims]]
	memo  *cache.Memoizer[string, Claims]
}

// NewVerifier creates a Verifier. Close releases its cache.
func NewVerifier(keys KeyProvider, cfg VerifierConfig, opts ...cache.Option) (*Verifier, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: key provider is required", cache.ErrInvalidConfig)
	}
	if len(cfg.Methods) == 0 {
		cfg.Methods = []string{jwt.SigningMethodHS256.Alg()}
	}
	if cfg.Size == 0 {
		cfg.Size = 1024
	}
	if cfg.MaxTTL == 0 {
		cfg.MaxTTL = 5 * time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = cache.SystemClock{}
	}

	opts = append([]cache.Option{cache.WithName("verifier"), cache.WithClock(cfg.Clock)}, opts...)
	store, err := cache.NewSlidingCache[cache.Entry[Claims]](cache.SlidingConfig{Size: cfg.Size}, opts...)
	if err != nil {
		return nil, err
	}

	v := &Verifier{keys: keys, cfg: cfg, store: store}
	v.memo, err = cache.NewMemoizer(v.verify, cache.MemoConfig[string, Claims]{
		Policy:       cache.Policy{MaxTTL: cfg.MaxTTL},
		NewStore:     func() (cache.Store[cache.Entry[Claims]], error) { return store, nil },
		SingleFlight: true,
	}, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return v, nil
}

// Verify returns the claims of token, validating it on first sight. The
// returned claims are a copy the caller may modify.
func (v *Verifier) Verify(ctx context.Context, token string) (Claims, error) {
	claims, err := v.memo.Do(ctx, token)
	if err != nil {
		return Claims{}, err
	}
	claims.Audience = slices.Clone(claims.Audience)
	claims.Raw = maps.Clone(claims.Raw)
	return claims, nil
}

// Forget drops a remembered verification, e.g. after revocation.
func (v *Verifier) Forget(ctx context.Context, token string) (bool, error) {
	return v.memo.Invalidate(ctx, token)
}

// Cached reports how many verifications are remembered.
func (v *Verifier) Cached(ctx context.Context) int {
	return v.store.Size(ctx)
}

// Close stops the cache sweeper.
func (v *Verifier) Close() error {
	return v.store.Close()
}

func (v *Verifier) verify(ctx context.Context, call *cache.Call, raw string) (Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(v.cfg.Methods),
		jwt.WithTimeFunc(v.cfg.Clock.Now),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.cfg.Audience))
	}

	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, mc, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.GetKey(ctx, kid)
	}, parserOpts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims := Claims{Raw: map[string]any(mc)}
	claims.Subject, _ = mc.GetSubject()
	claims.Issuer, _ = mc.GetIssuer()
	claims.Audience, _ = mc.GetAudience()
	if exp, _ := mc.GetExpirationTime(); exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, _ := mc.GetIssuedAt(); iat != nil {
		claims.IssuedAt = iat.Time
	}

	remaining := claims.ExpiresAt.Sub(v.cfg.Clock.Now())
	if remaining <= 0 {
		return Claims{}, ErrTokenExpired
	}
	call.SetTTL(remaining)
	return claims, nil
}
