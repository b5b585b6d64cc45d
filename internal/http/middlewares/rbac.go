package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/waktsa/elearning/internal/auth"
	"github.com/waktsa/elearning/internal/domain/user"
	"github.com/waktsa/elearning/internal/guard"
)

// RequireRole must run after RequireAuth. Roles are matched exactly.
func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok {
			AbortWithGuardError(c, auth.ErrMissingToken)
			return
		}

		if err := guard.RequireRole(id, required); err != nil {
			m.observe("role", outcome(err))
			AbortWithGuardError(c, err)
			return
		}

		m.observe("role", "allow")
		c.Next()
	}
}
