// Package token provides token helpers.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by ExpiresAt for a JWT without an exp claim.
var ErrNoExpiry = errors.New("token has no exp claim")

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// ExpiresAt decodes the exp claim of a JWT. The signature is not verified.
func ExpiresAt(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// ExpiresWithin reports whether the token expires within threshold of now.
// Tokens that cannot be decoded, or carry no expiry, count as expiring.
func ExpiresWithin(raw string, threshold time.Duration, now time.Time) bool {
	exp, err := ExpiresAt(raw)
	if err != nil {
		return true
	}
	return exp.Sub(now) <= threshold
}
