package credential

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/toolcache/cache"
)

// TokenConfig configures a TokenSource.
type TokenConfig struct {
	Issuer   string
	Subject  string
	Audience []string

	// KeyID is written to the "kid" header when set.
	KeyID string

	// Lifetime is the validity of each minted token. Default: 15 minutes.
	Lifetime time.Duration

	// Skew renews the token this long before it expires. Default: 30 seconds.
	Skew time.Duration

	// Claims are extra claims copied into every token.
	Claims map[string]any

	// Clock stamps iat and exp. Default: the system clock.
	Clock cache.Clock
}

// TokenSource mints HS256 tokens and hands out the same one until it is
// about to expire.
type TokenSource struct {
	key  []byte
	cfg  TokenConfig
	memo *cache.Memoizer[struct{}, string]
}

// NewTokenSource creates a token source signing with key. opts configure
// the underlying memoizer (logger, recorder, enabled flag).
func NewTokenSource(key []byte, cfg TokenConfig, opts ...cache.Option) (*TokenSource, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = 15 * time.Minute
	}
	if cfg.Skew == 0 {
		cfg.Skew = 30 * time.Second
	}
	if cfg.Lifetime < 0 || cfg.Skew < 0 || cfg.Skew >= cfg.Lifetime {
		return nil, fmt.Errorf("%w: lifetime %s must exceed skew %s",
			cache.ErrInvalidTTL, cfg.Lifetime, cfg.Skew)
	}
	if cfg.Clock == nil {
		cfg.Clock = cache.SystemClock{}
	}

	s := &TokenSource{key: key, cfg: cfg}
	memo, err := cache.NewMemoizer(s.mint, cache.MemoConfig[struct{}, string]{
		Key: cache.SingletonKey[struct{}](),
	}, append([]cache.Option{cache.WithName("token"), cache.WithClock(cfg.Clock)}, opts...)...)
	if err != nil {
		return nil, err
	}
	s.memo = memo
	return s, nil
}

// Token returns a valid signed token, minting a new one when needed.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	return s.memo.Do(ctx, struct{}{})
}

// Invalidate discards the current token so the next call mints a fresh one.
func (s *TokenSource) Invalidate(ctx context.Context) error {
	_, err := s.memo.Invalidate(ctx, struct{}{})
	return err
}

func (s *TokenSource) mint(_ context.Context, call *cache.Call, _ struct{}) (string, error) {
	now := s.cfg.Clock.Now()
	exp := now.Add(s.cfg.Lifetime)

	claims := jwt.MapClaims{}
	maps.Copy(claims, s.cfg.Claims)
	claims["iat"] = now.Unix()
	claims["exp"] = exp.Unix()
	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}
	if s.cfg.Subject != "" {
		claims["sub"] = s.cfg.Subject
	}
	if len(s.cfg.Audience) > 0 {
		claims["aud"] = s.cfg.Audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.cfg.KeyID != "" {
		token.Header["kid"] = s.cfg.KeyID
	}
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("credential: sign token: %w", err)
	}

	call.SetTTL(exp.Sub(now) - s.cfg.Skew)
	return signed, nil
}
