package events

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/organizations"
	"github.com/eventhive/backend/pkg/response"
)

// Reconciler is the invitation engine contract used by the invite endpoint.
type Reconciler interface {
	Reconcile(ctx context.Context, scope invitations.Scope, emails []string, role models.ScopeRole) (*invitations.Result, error)
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	orgs   *organizations.Repository
	engine Reconciler
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(repo *Repository, orgs *organizations.Repository, engine Reconciler, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, orgs: orgs, engine: engine, logger: logger}
}

// CreateRequest is the body for POST /organizations/:id/events.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	TeamAdminID string `json:"team_admin_id"`
	InstagramID string `json:"instagram_id"`
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Create handles POST /organizations/:id/events. Org admin only. The team
// admin defaults to the caller when not supplied.
func (h *Handler) Create(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	org, err := h.orgs.GetByID(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("load organization failed", zap.String("org_id", orgID.String()), zap.Error(err))
		response.Internal(c, "failed to load organization")
		return
	}
	if org == nil {
		response.NotFound(c, "Organization not found")
		return
	}
	if org.AdminID != userID {
		response.Forbidden(c, "only the organization admin may create events")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title, start_time and end_time required")
		return
	}
	startTime, err := parseTime(req.StartTime)
	if err != nil {
		response.BadRequest(c, "invalid start_time")
		return
	}
	endTime, err := parseTime(req.EndTime)
	if err != nil {
		response.BadRequest(c, "invalid end_time")
		return
	}
	if endTime.Before(startTime) {
		response.BadRequest(c, "end_time must not be before start_time")
		return
	}
	teamAdminID := userID
	if req.TeamAdminID != "" {
		teamAdminID, err = uuid.Parse(req.TeamAdminID)
		if err != nil {
			response.BadRequest(c, "invalid team_admin_id")
			return
		}
	}

	e := &models.Event{
		OrganizationID: orgID,
		TeamAdminID:    teamAdminID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		StartTime:      startTime,
		EndTime:        endTime,
		InstagramID:    req.InstagramID,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.String("org_id", orgID.String()), zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// ListByOrg handles GET /organizations/:id/events. Returns events with team
// admin details and participant lists.
func (h *Handler) ListByOrg(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	list, err := h.repo.ListByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list events failed", zap.String("org_id", orgID.String()), zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id. Team admin or org admin only. When the
// window changes, start and end are revalidated against each other.
func (h *Handler) Update(c *gin.Context) {
	e, ok := h.requireEventAdmin(c)
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		InstagramID *string `json:"instagram_id"`
		StartTime   *string `json:"start_time"`
		EndTime     *string `json:"end_time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	start, end := e.StartTime, e.EndTime
	var startPtr, endPtr *time.Time
	if req.StartTime != nil {
		t, err := parseTime(*req.StartTime)
		if err != nil {
			response.BadRequest(c, "invalid start_time")
			return
		}
		start, startPtr = t, &t
	}
	if req.EndTime != nil {
		t, err := parseTime(*req.EndTime)
		if err != nil {
			response.BadRequest(c, "invalid end_time")
			return
		}
		end, endPtr = t, &t
	}
	if end.Before(start) {
		response.BadRequest(c, "end_time must not be before start_time")
		return
	}
	if err := h.repo.Update(c.Request.Context(), e.ID, req.Title, req.Description, req.InstagramID, startPtr, endPtr); err != nil {
		h.logger.Error("update event failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	updated, err := h.repo.GetByID(c.Request.Context(), e.ID)
	if err != nil || updated == nil {
		response.Internal(c, "failed to load updated event")
		return
	}
	response.OK(c, updated)
}

// Delete handles DELETE /events/:id. Team admin or org admin only.
func (h *Handler) Delete(c *gin.Context) {
	e, ok := h.requireEventAdmin(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), e.ID); err != nil {
		h.logger.Error("delete event failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// ListParticipants handles GET /events/:id/participants.
func (h *Handler) ListParticipants(c *gin.Context) {
	e, ok := h.loadEvent(c)
	if !ok {
		return
	}
	list, err := h.repo.ListParticipants(c.Request.Context(), e.ID)
	if err != nil {
		h.logger.Error("list participants failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "failed to list participants")
		return
	}
	response.OK(c, list)
}

// RemoveParticipant handles DELETE /events/:id/participants/:userId. Team
// admin or org admin only.
func (h *Handler) RemoveParticipant(c *gin.Context) {
	e, ok := h.requireEventAdmin(c)
	if !ok {
		return
	}
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	removed, err := h.repo.RemoveParticipant(c.Request.Context(), e.ID, targetID)
	if err != nil {
		h.logger.Error("remove participant failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "failed to remove participant")
		return
	}
	if !removed {
		response.NotFound(c, "participant not found")
		return
	}
	response.NoContent(c)
}

// Invite handles POST /events/:id/invite. Team admin or org admin only.
func (h *Handler) Invite(c *gin.Context) {
	e, ok := h.requireEventAdmin(c)
	if !ok {
		return
	}
	var body organizations.InviteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "emails and role required")
		return
	}
	role, err := models.ParseScopeRole(body.Role)
	if err != nil {
		response.BadRequest(c, "role must be MEMBER or CLIENT")
		return
	}

	scope := invitations.Scope{Type: invitations.ScopeEvent, ID: e.ID}
	result, err := h.engine.Reconcile(c.Request.Context(), scope, body.Emails, role)
	if err != nil {
		switch err {
		case invitations.ErrNoEmails:
			response.BadRequest(c, "at least one email is required")
		case invitations.ErrScopeNotFound:
			response.NotFound(c, "Event not found")
		default:
			h.logger.Error("invite reconcile failed", zap.String("event_id", e.ID.String()), zap.Error(err))
			response.Internal(c, "failed to process invitations")
		}
		return
	}
	response.OKMessage(c, result.Message, result)
}

func (h *Handler) loadEvent(c *gin.Context) (*models.Event, bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	e, err := h.repo.GetByID(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("load event failed", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to load event")
		return nil, false
	}
	if e == nil {
		response.NotFound(c, "Event not found")
		return nil, false
	}
	return e, true
}

// requireEventAdmin allows the event's team admin or the owning org's admin.
func (h *Handler) requireEventAdmin(c *gin.Context) (*models.Event, bool) {
	e, ok := h.loadEvent(c)
	if !ok {
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if e.TeamAdminID == userID {
		return e, true
	}
	org, err := h.orgs.GetByID(c.Request.Context(), e.OrganizationID)
	if err != nil || org == nil {
		response.Internal(c, "failed to load organization")
		return nil, false
	}
	if org.AdminID != userID {
		response.Forbidden(c, "only the team admin or organization admin may do this")
		return nil, false
	}
	return e, true
}
