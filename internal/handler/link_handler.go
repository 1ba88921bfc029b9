package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/middleware"
	"github.com/user/shortlinks/internal/models"
)

// LinkHandler serves the /api/links endpoints.
type LinkHandler struct {
	links     LinkService
	analytics AnalyticsService
	log       *logrus.Entry
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(links LinkService, analytics AnalyticsService, log *logrus.Entry) *LinkHandler {
	return &LinkHandler{links: links, analytics: analytics, log: log}
}

// Create handles POST /api/links. Authentication is optional; anonymous
// links get a forced expiry.
func (h *LinkHandler) Create(c *gin.Context) {
	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request body",
			Code:    models.ErrCodeInvalidInput,
			Details: err.Error(),
		})
		return
	}

	resp, err := h.links.Create(c.Request.Context(), req, middleware.UserIDFromContext(c))
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// List handles GET /api/links.
func (h *LinkHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	links, err := h.links.List(c.Request.Context(), owner)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	if links == nil {
		links = []models.Link{}
	}

	c.JSON(http.StatusOK, links)
}

// Get handles GET /api/links/:id.
func (h *LinkHandler) Get(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	details, err := h.links.Details(c.Request.Context(), id, owner)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// Delete handles DELETE /api/links/:id.
func (h *LinkHandler) Delete(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	if err := h.links.Delete(c.Request.Context(), id, owner); err != nil {
		handleError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Analytics handles GET /api/links/:id/analytics.
func (h *LinkHandler) Analytics(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	link, err := h.links.Get(c.Request.Context(), id, owner)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	summary, err := h.analytics.Summarize(c.Request.Context(), link.ID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// QR handles GET /api/links/:id/qr.
func (h *LinkHandler) QR(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	png, err := h.links.QR(c.Request.Context(), id, owner)
	if err != nil {
		handleError(c, h.log, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// requireOwner backs up the RequireUser middleware.
func requireOwner(c *gin.Context) (string, bool) {
	owner := middleware.UserIDFromContext(c)
	if owner == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "Authentication required",
			Code:  models.ErrCodeUnauthorized,
		})
		return "", false
	}
	return *owner, true
}

func ownerAndID(c *gin.Context) (string, uuid.UUID, bool) {
	owner, ok := requireOwner(c)
	if !ok {
		return "", uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid link ID",
			Code:    models.ErrCodeInvalidInput,
			Details: "ID must be a UUID",
		})
		return "", uuid.Nil, false
	}
	return owner, id, true
}
