// Package credential inspects operator-supplied Open Cloud credentials without
// contacting Roblox.
package credential

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrTokenExpired = errors.New("oauth access token has expired")

// Expiry returns the exp claim of a JWT-shaped access token. ok is false when
// the token is opaque or carries no exp claim. The signature is not verified.
func Expiry(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	switch v := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	default:
		return time.Time{}, false
	}
}

// CheckToken returns ErrTokenExpired if token is a JWT whose exp is not after now.
// Opaque tokens always pass.
func CheckToken(token string, now time.Time) error {
	if token == "" {
		return nil
	}
	exp, ok := Expiry(token)
	if !ok {
		return nil
	}
	if !now.Before(exp) {
		return ErrTokenExpired
	}
	return nil
}
