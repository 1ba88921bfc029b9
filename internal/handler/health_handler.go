// ===========================================
// Package handler - Health Check Handler
// ===========================================
// /live answers as long as the process runs. /ready and /health probe
// every dependency; /health also reports which one failed.
// ===========================================

package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/user/shortlinks/internal/models"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	Health(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Health implements Pinger.
func (f PingFunc) Health(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps    map[string]Pinger
	version string
}

// NewHealthHandler creates a handler probing deps by name. Nil entries
// are skipped, so optional dependencies can be passed unconditionally.
func NewHealthHandler(deps map[string]Pinger, version string) *HealthHandler {
	checked := make(map[string]Pinger, len(deps))
	for name, dep := range deps {
		if dep != nil {
			checked[name] = dep
		}
	}
	return &HealthHandler{deps: checked, version: version}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(h.deps))
	healthy := true
	for _, name := range h.names() {
		if err := h.deps[name].Health(ctx); err != nil {
			services[name] = "error: " + err.Error()
			healthy = false
			continue
		}
		services[name] = "ok"
	}

	response := models.HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Services: services,
	}
	if !healthy {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for _, name := range h.names() {
		if err := h.deps[name].Health(ctx); err != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
	}
	c.Status(http.StatusOK)
}

// Live handles GET /live.
func (h *HealthHandler) Live(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *HealthHandler) names() []string {
	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
