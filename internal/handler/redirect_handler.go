package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/middleware"
	"github.com/user/shortlinks/internal/models"
)

// Terminal pages the redirect path sends visitors to.
const (
	PathNotFound     = "/not-found"
	PathExpired      = "/expired"
	PathLimitReached = "/limit-reached"
	PathError        = "/error"
)

// RedirectHandler serves GET /:shortCode.
type RedirectHandler struct {
	resolver Resolver
	log      *logrus.Entry
	now      func() time.Time
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(resolver Resolver, log *logrus.Entry) *RedirectHandler {
	return &RedirectHandler{resolver: resolver, log: log, now: time.Now}
}

// Redirect always answers 302: to the destination, or to the terminal
// page matching the outcome. 301 would let browsers skip accounting.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	code := c.Param("shortCode")

	rc := models.RequestContext{
		IP:        middleware.ClientIP(c),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
		At:        h.now().UTC(),
	}

	outcome, err := h.resolver.Resolve(c.Request.Context(), code, rc)
	if err != nil {
		_ = c.Error(err)
		h.log.WithError(err).WithField("short_code", code).Error("resolve failed")
		c.Redirect(http.StatusFound, PathError)
		return
	}

	c.Redirect(http.StatusFound, target(outcome))
}

func target(outcome models.Outcome) string {
	switch outcome.State {
	case models.StateRedirect:
		return outcome.Target
	case models.StateExpired:
		return PathExpired
	case models.StateLimitReached:
		return PathLimitReached
	case models.StateNotFound:
		return PathNotFound
	default:
		return PathError
	}
}
