package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []ReadinessCheck
	extra  func() gin.H
}

// NewHealthHandler wires readiness probes; extra, when set, adds fields to the
// /readyz body.
func NewHealthHandler(extra func() gin.H, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, extra: extra}
}

func (h *HealthHandler) Home(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "Welcome to the e-learning catalog API"})
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := withTimeout(ctx, 1*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}

	for _, c := range h.checks {
		if err := c.Check(cctx); err != nil {
			status = http.StatusServiceUnavailable
			results[c.Name] = err.Error()
			continue
		}
		results[c.Name] = "ok"
	}

	body := gin.H{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	if h.extra != nil {
		for k, v := range h.extra() {
			body[k] = v
		}
	}

	ctx.JSON(status, body)
}
