package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by [Inspect] when the token is opaque.
var ErrNotJWT = errors.New("token is not a jwt")

// Inspect decodes the claims of raw without verifying its signature. Opaque tokens
// (anything that is not three dot-separated base64url segments) yield [ErrNotJWT].
func Inspect(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, ErrNotJWT
	}
	return claims, nil
}

// ExpiresAtTime returns the "exp" claim, or the zero time when absent.
func (c *TokenClaims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Expired reports whether the token carries an "exp" claim that lies before now-leeway.
// Tokens without "exp" never expire locally.
func (c *TokenClaims) Expired(now time.Time, leeway time.Duration) bool {
	exp := c.ExpiresAtTime()
	if exp.IsZero() {
		return false
	}
	return now.Add(-leeway).After(exp)
}
