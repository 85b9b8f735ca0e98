package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Probe reports whether one dependency is usable. A nil Probe is skipped.
type Probe func(ctx context.Context) error

type HealthHandlerDeps struct {
	// Store is required for readiness; Sandbox is informational because execution degrades per request.
	Store   Probe
	Sandbox func() bool
}

type HealthHandler struct {
	store   Probe
	sandbox func() bool
}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func NewHealthHandlerWithDeps(deps HealthHandlerDeps) *HealthHandler {
	return &HealthHandler{store: deps.Store, sandbox: deps.Sandbox}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
func (h *HealthHandler) Ready(c *gin.Context) {
	body := gin.H{"store": "ok"}
	status := http.StatusOK
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store(ctx); err != nil {
			body["store"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if h.sandbox != nil {
		body["sandboxConfigured"] = h.sandbox()
	}
	c.JSON(status, body)
}
