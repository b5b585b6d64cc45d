package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// withTimeout bounds store calls while keeping the request's trace and
// cancellation.
func withTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
