// ===========================================
// Package middleware - Rate Limiting
// ===========================================
// Fixed-window counter per client IP, kept in Redis:
//  1. Key = "ratelimit:{ip}:{window index}"
//  2. INCR key, set expiry once per window
//  3. Reject with 429 once the count passes the limit
//
// Counter errors fail open; the redirect path must not depend on Redis.
// ===========================================

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/models"
)

// Counter increments a windowed counter and returns its new value.
type Counter interface {
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter is the middleware for rate limiting.
type RateLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	log     *logrus.Entry
	now     func() time.Time
}

// NewRateLimiter allows limit requests per window and client.
func NewRateLimiter(counter Counter, limit int, window time.Duration, log *logrus.Entry) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		log:     log,
		now:     time.Now,
	}
}

// Middleware returns the gin handler. A nil limiter or a non-positive
// limit lets everything through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.counter == nil || rl.limit <= 0 {
			c.Next()
			return
		}

		now := rl.now()
		windowStart := now.Truncate(rl.window)
		// c.ClientIP honours forwarding headers only from the engine's
		// trusted proxies, so a client cannot rotate its own key.
		key := database.RateLimitKey(c.ClientIP(), now, rl.window)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rl.counter.IncrementRateLimit(ctx, key, rl.window)
		if err != nil {
			rl.log.WithError(err).Warn("rate limit check failed, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, rl.limit-int(count))))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(windowStart.Add(rl.window).Unix(), 10))

		if int(count) > rl.limit {
			retryAfter := int(windowStart.Add(rl.window).Sub(now).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "Rate limit exceeded",
				Code:    models.ErrCodeRateLimited,
				Details: "Try again in " + strconv.Itoa(retryAfter) + " seconds",
			})
			return
		}

		c.Next()
	}
}

// ClientIP resolves the visitor address for click analytics: the first
// X-Forwarded-For hop, then X-Real-IP, then the socket peer. Both headers
// can be spoofed, so nothing that enforces limits keys on this.
func ClientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}

	return c.ClientIP()
}
