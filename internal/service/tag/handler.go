package tag

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"partymatch/internal/service/auth"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListTags handles GET /tags
func (h *Handler) ListTags(c *gin.Context) {
	var filters ListTagsRequest
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.service.ListTags(c.Request.Context(), filters)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags, "total": len(tags)})
}

// GetTag handles GET /tags/:id
func (h *Handler) GetTag(c *gin.Context) {
	t, err := h.service.GetTag(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// CreateTag handles POST /tags (superuser only)
func (h *Handler) CreateTag(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !actor.Superuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "only administrators can manage tags"})
		return
	}

	var req CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	t, err := h.service.CreateTag(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, t)
}

// UpdateTag handles PUT /tags/:id (superuser only)
func (h *Handler) UpdateTag(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !actor.Superuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "only administrators can manage tags"})
		return
	}

	var req UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	t, err := h.service.UpdateTag(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, t)
}

// DeleteTag handles DELETE /tags/:id (superuser only)
func (h *Handler) DeleteTag(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !actor.Superuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "only administrators can manage tags"})
		return
	}

	if err := h.service.DeleteTag(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tag deleted"})
}

// ReplaceMyTags handles PUT /profile/tags
func (h *Handler) ReplaceMyTags(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ReplaceUserTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	tags, err := h.service.ReplaceUserTags(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags, "total": len(tags)})
}

// GetUserTags handles GET /users/:id/tags
func (h *Handler) GetUserTags(c *gin.Context) {
	tags, err := h.service.GetUserTags(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags, "total": len(tags)})
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrTagNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrTagExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnknownSlug):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidCategory):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
