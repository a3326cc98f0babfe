package prefs

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expired reports whether token is a JWT whose exp claim is before now.
// The signature is not verified; the backend remains the authority. Tokens
// that are not JWTs, or carry no exp, are never reported as expired.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && exp.Before(now)
}

// Subject returns the sub claim of a JWT token, or "" when unavailable.
func Subject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(NormalizeToken(token), claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// ExpiresAt returns the exp claim of a JWT token.
func ExpiresAt(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(NormalizeToken(token), claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
