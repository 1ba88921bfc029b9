// ===========================================
// Package handler - HTTP Request Handlers
// ===========================================
// Handlers are thin: parse the request, call a service, format the
// response. Every service error is mapped to an ErrorResponse in one
// place, handleError.
// ===========================================

package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/models"
	"github.com/user/shortlinks/internal/service"
)

// LinkService manages links on behalf of their owners.
type LinkService interface {
	Create(ctx context.Context, req models.CreateLinkRequest, owner *string) (*models.CreateLinkResponse, error)
	List(ctx context.Context, owner string) ([]models.Link, error)
	Get(ctx context.Context, id uuid.UUID, owner string) (*models.Link, error)
	Details(ctx context.Context, id uuid.UUID, owner string) (*models.LinkDetails, error)
	Delete(ctx context.Context, id uuid.UUID, owner string) error
	QR(ctx context.Context, id uuid.UUID, owner string) ([]byte, error)
}

// Resolver decides what a short code redirects to.
type Resolver interface {
	Resolve(ctx context.Context, code string, rc models.RequestContext) (models.Outcome, error)
}

// AnalyticsService summarizes the clicks of a link.
type AnalyticsService interface {
	Summarize(ctx context.Context, linkID uuid.UUID) (*models.AnalyticsSummary, error)
}

// handleError converts service errors to HTTP responses. Unknown errors
// are logged and reported without detail.
func handleError(c *gin.Context, log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: "Link not found",
			Code:  models.ErrCodeNotFound,
		})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error: "You do not own this link",
			Code:  models.ErrCodeForbidden,
		})

	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Authentication required",
			Code:    models.ErrCodeUnauthorized,
			Details: err.Error(),
		})

	case errors.Is(err, service.ErrCodeTaken):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error: "Short code already taken",
			Code:  models.ErrCodeConflict,
		})

	case errors.Is(err, service.ErrReservedCode):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Short code is reserved",
			Code:  models.ErrCodeReserved,
		})

	case errors.Is(err, service.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid short code format",
			Code:    models.ErrCodeInvalidInput,
			Details: err.Error(),
		})

	case errors.Is(err, service.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid URL format",
			Code:    models.ErrCodeInvalidInput,
			Details: err.Error(),
		})

	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid input",
			Code:    models.ErrCodeInvalidInput,
			Details: err.Error(),
		})

	default:
		_ = c.Error(err)
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Internal server error",
			Code:  models.ErrCodeInternalError,
		})
	}
}
