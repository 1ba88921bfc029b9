// ===========================================
// Package middleware - Bearer Authentication
// ===========================================
// OptionalUser attaches the caller's identity when a valid token is
// present; RequireUser additionally rejects anonymous callers with 401.
// A malformed or invalid token is always a 401, even where auth is
// optional, so clients notice a broken token instead of silently
// creating anonymous links.
// ===========================================

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/user/shortlinks/internal/models"
)

const userIDKey = "user_id"

// TokenVerifier maps a bearer token to a user ID.
type TokenVerifier interface {
	UserID(token string) (string, error)
}

// Auth is the middleware for bearer token authentication.
type Auth struct {
	verifier TokenVerifier
}

// NewAuth creates a new auth middleware.
func NewAuth(verifier TokenVerifier) *Auth {
	return &Auth{verifier: verifier}
}

// OptionalUser lets anonymous requests through.
func (a *Auth) OptionalUser() gin.HandlerFunc {
	return a.handler(false)
}

// RequireUser rejects requests without a valid token.
func (a *Auth) RequireUser() gin.HandlerFunc {
	return a.handler(true)
}

func (a *Auth) handler(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				unauthorized(c, "Authentication required")
				return
			}
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c, "Authorization header must be in format: Bearer {token}")
			return
		}

		userID, err := a.verifier.UserID(strings.TrimSpace(token))
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext returns the authenticated caller, or nil.
func UserIDFromContext(c *gin.Context) *string {
	v, ok := c.Get(userIDKey)
	if !ok {
		return nil
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error: msg,
		Code:  models.ErrCodeUnauthorized,
	})
}
