package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waktsa/elearning/internal/actorctx"
	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/guard"
)

// Keep this small interface so tests can fake it easily.
type Guard interface {
	RequireAuthenticated(ctx context.Context, raw string) (user.Identity, error)
	RequireSubscribed(ctx context.Context, id *user.Identity, now time.Time) error
	Now() time.Time
}

type DecisionObserver interface {
	ObserveAuth(check, result string)
}

type AuthMiddleware struct {
	guard Guard
	obs   DecisionObserver
}

func NewAuthMiddleware(g Guard, obs DecisionObserver) *AuthMiddleware {
	return &AuthMiddleware{guard: g, obs: obs}
}

// RequireAuth resolves the caller from the access_token cookie or the bearer
// header and stores the fresh identity on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := auth.TokenFromRequest(c.Request)
		if err == nil {
			var id user.Identity
			id, err = m.guard.RequireAuthenticated(c.Request.Context(), raw)
			if err == nil {
				m.observe("authenticate", "allow")
				setIdentity(c, id)
				c.Next()
				return
			}
		}

		m.observe("authenticate", outcome(err))
		AbortWithGuardError(c, err)
	}
}

// RequireSubscription must run after RequireAuth.
func (m *AuthMiddleware) RequireSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok {
			AbortWithGuardError(c, auth.ErrMissingToken)
			return
		}

		if err := m.guard.RequireSubscribed(c.Request.Context(), &id, m.guard.Now()); err != nil {
			// the guard may have expired the row; keep the context in step
			setIdentity(c, id)
			m.observe("subscription", outcome(err))
			AbortWithGuardError(c, err)
			return
		}

		m.observe("subscription", "allow")
		c.Next()
	}
}

func (m *AuthMiddleware) observe(check, result string) {
	if m.obs != nil {
		m.obs.ObserveAuth(check, result)
	}
}

func setIdentity(c *gin.Context, id user.Identity) {
	c.Set(CtxIdentity, id)
	c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))
}

// Optional helpers so handlers don't need to know the magic keys.

func IdentityFromContext(c *gin.Context) (user.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return user.Identity{}, false
	}
	id, ok := v.(user.Identity)
	return id, ok
}

func UserIDFromContext(c *gin.Context) (int64, bool) {
	id, ok := IdentityFromContext(c)
	return id.ID, ok
}

// AbortWithGuardError maps guard and token failures onto 401/403 with the
// standard error envelope.
func AbortWithGuardError(c *gin.Context, err error) {
	status, code, message := http.StatusInternalServerError, "internal_error", "Could not authorize request"
	var details interface{}

	var forbidden *guard.ForbiddenError

	switch {
	case errors.Is(err, auth.ErrMissingToken):
		status, code, message = http.StatusUnauthorized, "missing_token", "Authentication required"
	case errors.Is(err, auth.ErrExpiredToken):
		status, code, message = http.StatusUnauthorized, "expired_token", "Access token has expired"
	case errors.Is(err, auth.ErrInvalidToken):
		status, code, message = http.StatusUnauthorized, "invalid_token", "Invalid access token"
	case errors.Is(err, guard.ErrUserNotFound):
		status, code, message = http.StatusUnauthorized, "user_not_found", "User no longer exists"
	case errors.As(err, &forbidden):
		status, code = http.StatusForbidden, "forbidden"
		details = gin.H{"reason": string(forbidden.Reason)}
		message = "Insufficient permissions"
		if forbidden.Reason == guard.ReasonSubscription {
			message = "Subscription required"
		}
	}

	abortError(c, status, code, message, details)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, guard.ErrForbidden):
		return "forbidden"
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, guard.ErrUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}
