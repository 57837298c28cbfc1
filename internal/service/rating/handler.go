package rating

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"partymatch/internal/service/auth"
	"partymatch/internal/service/party"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateRating handles POST /ratings
func (h *Handler) CreateRating(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	rating, err := h.service.CreateRating(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rating)
}

// GetRating handles GET /ratings/:id
func (h *Handler) GetRating(c *gin.Context) {
	rating, err := h.service.GetRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

// UpdateRating handles PUT /ratings/:id
func (h *Handler) UpdateRating(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	rating, err := h.service.UpdateRating(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rating)
}

// DeleteRating handles DELETE /ratings/:id
func (h *Handler) DeleteRating(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.service.DeleteRating(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rating deleted"})
}

// GetPartyRatings handles GET /ratings/party/:id
func (h *Handler) GetPartyRatings(c *gin.Context) {
	ratings, err := h.service.GetPartyRatings(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings, "total": len(ratings)})
}

// GetMyReceivedRatings handles GET /ratings/users/me/received
func (h *Handler) GetMyReceivedRatings(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ratings, err := h.service.GetReceivedRatings(c.Request.Context(), actor.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings, "total": len(ratings)})
}

// GetMyGivenRatings handles GET /ratings/users/me/given
func (h *Handler) GetMyGivenRatings(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ratings, err := h.service.GetGivenRatings(c.Request.Context(), actor.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings, "total": len(ratings)})
}

// GetUserReceivedRatings handles GET /ratings/users/:id/received
func (h *Handler) GetUserReceivedRatings(c *gin.Context) {
	ratings, err := h.service.GetReceivedRatings(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": ratings, "total": len(ratings)})
}

// GetUserSummary handles GET /ratings/users/:id/summary
func (h *Handler) GetUserSummary(c *gin.Context) {
	summary, err := h.service.GetUserSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetRatableUsers handles GET /ratings/party/:id/ratable-users
func (h *Handler) GetRatableUsers(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ratable, err := h.service.GetRatableUsers(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ratable, "total": len(ratable)})
}

// CanRate handles GET /ratings/party/:id/can-rate
func (h *Handler) CanRate(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	canRate, err := h.service.CanRate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, CanRateResponse{CanRate: canRate})
}

// GetMyRatingForUser handles GET /ratings/party/:id/users/:user_id/mine
func (h *Handler) GetMyRatingForUser(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rating, err := h.service.GetMyRatingForUser(c.Request.Context(), actor, c.Param("id"), c.Param("user_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rating)
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRatingNotFound),
		errors.Is(err, party.ErrPartyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotRater):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrPartyNotDone),
		errors.Is(err, ErrNotPartyMember),
		errors.Is(err, ErrSelfRating),
		errors.Is(err, ErrAlreadyRated):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
