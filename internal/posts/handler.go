package posts

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/events"
	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/internal/organizations"
	"github.com/eventhive/backend/pkg/response"
	"github.com/eventhive/backend/pkg/storage"
)

// Handler handles post HTTP endpoints.
type Handler struct {
	repo   *Repository
	events *events.Repository
	orgs   *organizations.Repository
	relay  invitations.Relay
	media  *storage.S3
	logger *zap.Logger
}

// NewHandler creates a posts handler. media may be nil when S3 is not
// configured; upload URL generation then reports unavailable.
func NewHandler(repo *Repository, eventsRepo *events.Repository, orgs *organizations.Repository, relay invitations.Relay, media *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, events: eventsRepo, orgs: orgs, relay: relay, media: media, logger: logger}
}

// CreateRequest is the body for POST /events/:id/posts.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	Additional  string `json:"additional"`
	Hashtags    string `json:"hashtags"`
	MediaURL    string `json:"media_url"`
	PostType    string `json:"post_type"`
}

// Create handles POST /events/:id/posts. Team admin or org admin only. The
// post and the event's post_id back-reference are written in one transaction.
func (h *Handler) Create(c *gin.Context) {
	e, ok := h.requireEventAdmin(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title required")
		return
	}
	if req.PostType == "" {
		req.PostType = models.PostTypeSocial
	}
	p := &models.Post{
		OrganizationID: e.OrganizationID,
		EventID:        e.ID,
		Title:          req.Title,
		Subtitle:       req.Subtitle,
		Description:    req.Description,
		Additional:     req.Additional,
		Hashtags:       req.Hashtags,
		MediaURL:       req.MediaURL,
		PostType:       req.PostType,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		h.logger.Error("create post failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "failed to create post")
		return
	}
	response.Created(c, p)
}

// ListByEvent handles GET /events/:id/posts with ?page and ?limit.
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, total, err := h.repo.ListByEvent(c.Request.Context(), eventID, limit, (page-1)*limit)
	if err != nil {
		h.logger.Error("list posts failed", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to list posts")
		return
	}
	response.OK(c, gin.H{"posts": list, "total": total, "page": page, "limit": limit})
}

// Get handles GET /posts/:id.
func (h *Handler) Get(c *gin.Context) {
	p, ok := h.loadPost(c)
	if !ok {
		return
	}
	response.OK(c, p)
}

// Publish handles PATCH /posts/:id/publish. Team admin or org admin only.
// Flips is_published without touching confirm_by_client. Participants are
// notified when the post becomes published.
func (h *Handler) Publish(c *gin.Context) {
	p, ok := h.loadPost(c)
	if !ok {
		return
	}
	e, ok := h.adminOf(c, p.EventID)
	if !ok {
		return
	}
	var req struct {
		IsPublished *bool `json:"is_published" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "is_published required")
		return
	}
	if err := h.repo.SetPublished(c.Request.Context(), p.ID, *req.IsPublished); err != nil {
		h.logger.Error("publish post failed", zap.String("post_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to update post")
		return
	}
	if *req.IsPublished && !p.IsPublished {
		h.notifyParticipants(c, e, fmt.Sprintf("A post for %s was published", e.Title))
	}
	updated, err := h.repo.GetByID(c.Request.Context(), p.ID)
	if err != nil || updated == nil {
		response.Internal(c, "failed to load updated post")
		return
	}
	response.OK(c, updated)
}

// Confirm handles PATCH /posts/:id/confirm. Only a CLIENT participant of the
// owning event may flip confirm_by_client; is_published is untouched.
func (h *Handler) Confirm(c *gin.Context) {
	p, ok := h.loadPost(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, isParticipant, err := h.events.ParticipantRole(c.Request.Context(), p.EventID, userID)
	if err != nil {
		h.logger.Error("participant lookup failed", zap.String("post_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to check participant")
		return
	}
	if !isParticipant || role != models.ScopeRoleClient {
		response.Forbidden(c, "only a client participant may confirm this post")
		return
	}
	var req struct {
		ConfirmByClient *bool `json:"confirm_by_client" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "confirm_by_client required")
		return
	}
	if err := h.repo.SetConfirmByClient(c.Request.Context(), p.ID, *req.ConfirmByClient); err != nil {
		h.logger.Error("confirm post failed", zap.String("post_id", p.ID.String()), zap.Error(err))
		response.Internal(c, "failed to update post")
		return
	}
	if *req.ConfirmByClient && !p.ConfirmByClient {
		e, err := h.events.GetByID(c.Request.Context(), p.EventID)
		if err == nil && e != nil {
			n := invitations.Notification{
				Message: fmt.Sprintf("The client confirmed the post for %s", e.Title),
				Type:    models.NotificationTypePostUpdate,
			}
			if err := h.relay.Notify(c.Request.Context(), e.TeamAdminID, n); err != nil {
				h.logger.Error("confirm notify failed", zap.String("event_id", e.ID.String()), zap.Error(err))
			}
		}
	}
	updated, err := h.repo.GetByID(c.Request.Context(), p.ID)
	if err != nil || updated == nil {
		response.Internal(c, "failed to load updated post")
		return
	}
	response.OK(c, updated)
}

// GenerateUploadURL handles POST /events/:id/posts/generate-upload-url.
// Returns a pre-signed PUT URL plus the public URL the client should store as
// media_url after uploading.
func (h *Handler) GenerateUploadURL(c *gin.Context) {
	e, ok := h.requireEventAdmin(c)
	if !ok {
		return
	}
	if h.media == nil {
		response.ServiceUnavailable(c, "media storage is not configured")
		return
	}
	var req struct {
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"content_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "filename required")
		return
	}
	if !storage.ValidateMediaFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if req.ContentType == "" {
		req.ContentType = storage.ContentTypeForFilename(req.Filename)
	}
	key := storage.PostMediaKey(e.ID.String(), req.Filename)
	url, err := h.media.GeneratePresignedUploadURL(c.Request.Context(), key, req.ContentType, h.media.PresignExpire())
	if err != nil {
		h.logger.Error("presign upload failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		response.Internal(c, "failed to generate upload url")
		return
	}
	response.OK(c, gin.H{
		"upload_url": url,
		"media_url":  h.media.PublicObjectURL(key),
		"key":        key,
	})
}

func (h *Handler) notifyParticipants(c *gin.Context, e *models.Event, message string) {
	participants, err := h.events.ListParticipants(c.Request.Context(), e.ID)
	if err != nil {
		h.logger.Error("participant list for notify failed", zap.String("event_id", e.ID.String()), zap.Error(err))
		return
	}
	for _, p := range participants {
		n := invitations.Notification{Message: message, Type: models.NotificationTypePostUpdate}
		if err := h.relay.Notify(c.Request.Context(), p.UserID, n); err != nil {
			h.logger.Error("publish notify failed",
				zap.String("event_id", e.ID.String()),
				zap.String("user_id", p.UserID.String()),
				zap.Error(err))
		}
	}
}

func (h *Handler) loadPost(c *gin.Context) (*models.Post, bool) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return nil, false
	}
	p, err := h.repo.GetByID(c.Request.Context(), postID)
	if err != nil {
		h.logger.Error("load post failed", zap.String("post_id", postID.String()), zap.Error(err))
		response.Internal(c, "failed to load post")
		return nil, false
	}
	if p == nil {
		response.NotFound(c, "Post not found")
		return nil, false
	}
	return p, true
}

// requireEventAdmin parses :id as an event and allows its team admin or the
// owning org's admin.
func (h *Handler) requireEventAdmin(c *gin.Context) (*models.Event, bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return nil, false
	}
	return h.adminOf(c, eventID)
}

// adminOf allows the event's team admin or the owning org's admin.
func (h *Handler) adminOf(c *gin.Context, eventID uuid.UUID) (*models.Event, bool) {
	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("load event failed", zap.String("event_id", eventID.String()), zap.Error(err))
		response.Internal(c, "failed to load event")
		return nil, false
	}
	if e == nil {
		response.NotFound(c, "Event not found")
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
