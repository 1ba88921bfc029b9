package models

import (
	"time"

	"github.com/google/uuid"
)

// ===========================================
// Request DTOs
// ===========================================

// CreateLinkRequest is the body of POST /api/links. The URL is normalized
// by the service, so only its presence is checked at binding time.
type CreateLinkRequest struct {
	URL        string     `json:"url" binding:"required"`
	CustomCode string     `json:"customCode,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	MaxClicks  *int       `json:"maxClicks,omitempty"`
	IsOneTime  bool       `json:"isOneTime,omitempty"`
}

// ===========================================
// Response DTOs
// ===========================================

// CreateLinkResponse is returned after a link is created.
type CreateLinkResponse struct {
	ID          uuid.UUID  `json:"id"`
	ShortCode   string     `json:"shortCode"`
	ShortURL    string     `json:"shortUrl"`
	OriginalURL string     `json:"originalUrl"`
	QRCode      string     `json:"qrCode,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LinkDetails is a link together with its recent daily click history.
type LinkDetails struct {
	Link
	ShortURL     string       `json:"shortUrl"`
	ClickHistory []DailyCount `json:"clickHistory"`
}

// ===========================================
// Error Response
// ===========================================

// ErrorResponse provides a consistent error format across all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable message
	Code    string `json:"code,omitempty"`    // Machine-readable error code
	Details string `json:"details,omitempty"` // Additional context
}

// Error codes used in ErrorResponse.Code.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeReserved      = "RESERVED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Services map[string]string `json:"services"`
}
