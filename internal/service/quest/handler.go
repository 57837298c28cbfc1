package quest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"partymatch/internal/service/auth"
	"partymatch/internal/service/party"
	"partymatch/internal/service/tag"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListQuests handles GET /quests
func (h *Handler) ListQuests(c *gin.Context) {
	var filters ListQuestsRequest
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	quests, err := h.service.ListQuests(c.Request.Context(), filters)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quests": quests, "total": len(quests)})
}

// GetMyQuests handles GET /quests/my
func (h *Handler) GetMyQuests(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var filters ListQuestsRequest
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	quests, err := h.service.GetMyQuests(c.Request.Context(), actor.ID, filters)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quests": quests, "total": len(quests)})
}

// Discover handles GET /quests/discover
func (h *Handler) Discover(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DiscoverRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	matches, err := h.service.Discover(c.Request.Context(), actor.ID, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quests": matches, "total": len(matches)})
}

// CreateQuest handles POST /quests
func (h *Handler) CreateQuest(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	q, err := h.service.CreateQuest(c.Request.Context(), actor, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, q)
}

// CreateForParty handles POST /parties/:id/quests
func (h *Handler) CreateForParty(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreatePartyQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	q, err := h.service.CreateForParty(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, q)
}

// GetQuest handles GET /quests/:id
func (h *Handler) GetQuest(c *gin.Context) {
	q, err := h.service.GetQuest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// UpdateQuest handles PUT /quests/:id
func (h *Handler) UpdateQuest(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	q, err := h.service.UpdateQuest(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

// DeleteQuest handles DELETE /quests/:id
func (h *Handler) DeleteQuest(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.service.DeleteQuest(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quest deleted"})
}

// Close handles POST /quests/:id/close
func (h *Handler) Close(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q, err := h.service.Close(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

// Complete handles POST /quests/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q, err := h.service.Complete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

// Cancel handles POST /quests/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q, err := h.service.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

// Publicize handles POST /quests/:id/publicize
func (h *Handler) Publicize(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req PublicizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	q, err := h.service.Publicize(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, q)
}

// AssignMembers handles POST /quests/:id/assign-members
func (h *Handler) AssignMembers(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req AssignMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	assigned, err := h.service.AssignMembers(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assigned_members": assigned, "total": len(assigned)})
}

// ListAssignedMembers handles GET /quests/:id/assigned-members
func (h *Handler) ListAssignedMembers(c *gin.Context) {
	assigned, err := h.service.ListAssignedMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assigned_members": assigned, "total": len(assigned)})
}

// Apply handles POST /quests/:id/apply
func (h *Handler) Apply(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	a, err := h.service.Apply(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, a)
}

// GetMyApplications handles GET /quest-applications/my
func (h *Handler) GetMyApplications(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	applications, err := h.service.GetMyApplications(c.Request.Context(), actor)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": applications, "total": len(applications)})
}

// GetQuestApplications handles GET /quest-applications/quests/:id
func (h *Handler) GetQuestApplications(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	applications, err := h.service.GetQuestApplications(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": applications, "total": len(applications)})
}

// GetApplication handles GET /quest-applications/:id
func (h *Handler) GetApplication(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	a, err := h.service.GetApplication(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// UpdateApplication handles PUT /quest-applications/:id
func (h *Handler) UpdateApplication(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	a, err := h.service.UpdateApplication(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// ReviewApplication handles POST /quest-applications/:id/review
func (h *Handler) ReviewApplication(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	a, err := h.service.ReviewApplication(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// WithdrawApplication handles POST /quest-applications/:id/withdraw
func (h *Handler) WithdrawApplication(c *gin.Context) {
	actor, ok := auth.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	a, err := h.service.WithdrawApplication(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// handleError maps domain errors to HTTP status codes
func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrQuestNotFound),
		errors.Is(err, ErrApplicationNotFound),
		errors.Is(err, party.ErrPartyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotQuestCreator),
		errors.Is(err, ErrNotAuthorized),
		errors.Is(err, ErrPrivateQuest):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrQuestNotRecruiting),
		errors.Is(err, ErrQuestNotInProgress),
		errors.Is(err, ErrQuestNotCancelable),
		errors.Is(err, ErrPartyTooSmall),
		errors.Is(err, ErrNotPublicizable),
		errors.Is(err, ErrNotInternalQuest),
		errors.Is(err, ErrInvalidAssignees),
		errors.Is(err, ErrInvalidPartySize),
		errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, ErrStartInPast),
		errors.Is(err, ErrSelfApplication),
		errors.Is(err, ErrAlreadyApplied),
		errors.Is(err, ErrApplicationNotPending),
		errors.Is(err, party.ErrPartyExists),
		errors.Is(err, party.ErrAlreadyMember),
		errors.Is(err, tag.ErrUnknownSlug):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotApplicant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
