package auth

import (
	"net/http"
	"strings"
)

const AccessTokenCookie = "access_token"

// TokenFromRequest returns the bearer credential, preferring the cookie over the
// Authorization header when both are present.
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return "", ErrMissingToken
	}

	return raw, nil
}
