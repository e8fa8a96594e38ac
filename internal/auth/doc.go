// Package auth guards the JSON API with a single bearer token.
//
// Only a bcrypt hash of the token is configured (API_TOKEN_HASH); the
// plaintext is shown once by the "hash-token" command and never stored.
// When no hash is configured every request passes.
//
// Repeated bad tokens from one client IP are locked out by RateLimiter.
package auth
