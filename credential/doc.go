// Package credential mints and verifies JWTs with cached results.
//
// TokenSource signs a bearer token and reuses it until shortly before it
// expires; the cache lifetime is set from the token's own expiry at the
// moment it is minted. Verifier remembers the claims of tokens it has
// already validated, never longer than the token stays valid. Failed
// verifications are not remembered.
package credential
