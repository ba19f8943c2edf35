package credential

import "errors"

var (
	// ErrInvalidToken indicates a token failed signature or claim validation.
	ErrInvalidToken = errors.New("credential: invalid token")

	// ErrTokenExpired indicates a token is past its exp claim.
	ErrTokenExpired = errors.New("credential: token expired")

	// ErrMissingKey indicates no signing key was supplied.
	ErrMissingKey = errors.New("credential: signing key is required")
)
