package organizations

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/invitations"
	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/response"
	"github.com/eventhive/backend/pkg/storage"
)

// Reconciler is the invitation engine contract used by the invite endpoint.
type Reconciler interface {
	Reconcile(ctx context.Context, scope invitations.Scope, emails []string, role models.ScopeRole) (*invitations.Result, error)
}

// InvitationLogs lists invitation delivery logs for a scope.
type InvitationLogs interface {
	ListByScope(ctx context.Context, scopeType invitations.ScopeType, scopeID uuid.UUID) ([]*models.InvitationLog, error)
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo    *Repository
	engine  Reconciler
	invLogs InvitationLogs
	media   *storage.S3
	logger  *zap.Logger
}

// NewHandler creates an organizations handler. media may be nil when S3 is not
// configured; image upload then reports unavailable.
func NewHandler(repo *Repository, engine Reconciler, invLogs InvitationLogs, media *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, engine: engine, invLogs: invLogs, media: media, logger: logger}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name     string `json:"name" binding:"required"`
	Slug     string `json:"slug"`
	ImageURL string `json:"image_url"`
}

// InviteRequest is the body for POST /organizations/:id/invite and
// POST /events/:id/invite.
type InviteRequest struct {
	Emails []string `json:"emails" binding:"required"`
	Role   string   `json:"role" binding:"required"`
}

// Create handles POST /organizations. The caller becomes the organization's
// admin. The slug derives from the name when not supplied.
func (h *Handler) Create(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 1 || len(body.Name) > 255 {
		response.BadRequest(c, "name must be 1-255 characters")
		return
	}
	if body.Slug == "" {
		body.Slug = body.Name
	}
	body.Slug = slug.Make(body.Slug)
	if body.Slug == "" {
		response.BadRequest(c, "slug could not be derived from name")
		return
	}

	org := &models.Organization{Name: body.Name, Slug: body.Slug, ImageURL: body.ImageURL, AdminID: userID}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique") {
			response.Conflict(c, "An organization with this slug already exists")
			return
		}
		h.logger.Error("create organization failed", zap.Error(err))
		response.Internal(c, "failed to create organization")
		return
	}
	response.Created(c, org)
}

// ListMine handles GET /organizations. Returns organizations the caller
// administers or belongs to.
func (h *Handler) ListMine(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	orgs, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list organizations failed", zap.Error(err))
		response.Internal(c, "failed to load organizations")
		return
	}
	response.OK(c, orgs)
}

// Get handles GET /organizations/:id.
func (h *Handler) Get(c *gin.Context) {
	org, ok := h.loadOrg(c)
	if !ok {
		return
	}
	response.OK(c, org)
}

// Delete handles DELETE /organizations/:id. Admin only; cascades to events,
// memberships, participants, and posts.
func (h *Handler) Delete(c *gin.Context) {
	org, ok := h.requireAdmin(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), org.ID); err != nil {
		h.logger.Error("delete organization failed", zap.String("org_id", org.ID.String()), zap.Error(err))
		response.Internal(c, "failed to delete organization")
		return
	}
	response.NoContent(c)
}

// ListMembers handles GET /organizations/:id/members.
func (h *Handler) ListMembers(c *gin.Context) {
	org, ok := h.loadOrg(c)
	if !ok {
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), org.ID)
	if err != nil {
		h.logger.Error("list members failed", zap.String("org_id", org.ID.String()), zap.Error(err))
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}

// Invite handles POST /organizations/:id/invite. Admin only. Existing users
// get membership rows and a notification; unknown emails get an email invite.
func (h *Handler) Invite(c *gin.Context) {
	org, ok := h.requireAdmin(c)
	if !ok {
		return
	}
	var body InviteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "emails and role required")
		return
	}
	role, err := models.ParseScopeRole(body.Role)
	if err != nil {
		response.BadRequest(c, "role must be MEMBER or CLIENT")
		return
	}

	scope := invitations.Scope{Type: invitations.ScopeOrganization, ID: org.ID}
	result, err := h.engine.Reconcile(c.Request.Context(), scope, body.Emails, role)
	if err != nil {
		switch err {
		case invitations.ErrNoEmails:
			response.BadRequest(c, "at least one email is required")
		case invitations.ErrScopeNotFound:
			response.NotFound(c, "Organization not found")
		default:
			h.logger.Error("invite reconcile failed", zap.String("org_id", org.ID.String()), zap.Error(err))
			response.Internal(c, "failed to process invitations")
		}
		return
	}
	response.OKMessage(c, result.Message, result)
}

// ListInvitations handles GET /organizations/:id/invitations. Admin only;
// returns email delivery status for past invites.
func (h *Handler) ListInvitations(c *gin.Context) {
	org, ok := h.requireAdmin(c)
	if !ok {
		return
	}
	logs, err := h.invLogs.ListByScope(c.Request.Context(), invitations.ScopeOrganization, org.ID)
	if err != nil {
		h.logger.Error("list invitations failed", zap.String("org_id", org.ID.String()), zap.Error(err))
		response.Internal(c, "failed to load invitations")
		return
	}
	response.OK(c, logs)
}

// UploadImage handles POST /organizations/:id/image. Admin only. Accepts a
// multipart "file" field, stores it in the media bucket, and records the URL.
func (h *Handler) UploadImage(c *gin.Context) {
	org, ok := h.requireAdmin(c)
	if !ok {
		return
	}
	if h.media == nil {
		response.ServiceUnavailable(c, "media storage is not configured")
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field required")
		return
	}
	defer file.Close()
	if header.Size > storage.MaxMediaFileSize {
		response.BadRequest(c, "file exceeds 10MB limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateMediaFileType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(header.Filename)
	}

	key := storage.OrgImageKey(org.ID.String(), header.Filename)
	url, err := h.media.Upload(c.Request.Context(), key, contentType, file, header.Size, true)
	if err != nil {
		h.logger.Error("org image upload failed", zap.String("org_id", org.ID.String()), zap.Error(err))
		response.Internal(c, "failed to upload image")
		return
	}
	if err := h.repo.UpdateImageURL(c.Request.Context(), org.ID, url); err != nil {
		h.logger.Error("org image url update failed", zap.String("org_id", org.ID.String()), zap.Error(err))
		response.Internal(c, "failed to record image")
		return
	}
	response.OK(c, gin.H{"image_url": url})
}

// loadOrg parses :id and loads the organization, writing the error response
// itself when either step fails.
func (h *Handler) loadOrg(c *gin.Context) (*models.Organization, bool) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return nil, false
	}
	org, err := h.repo.GetByID(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("load organization failed", zap.String("org_id", orgID.String()), zap.Error(err))
		response.Internal(c, "failed to load organization")
		return nil, false
	}
	if org == nil {
		response.NotFound(c, "Organization not found")
		return nil, false
	}
	return org, true
}

// requireAdmin loads the organization and rejects callers other than its admin.
func (h *Handler) requireAdmin(c *gin.Context) (*models.Organization, bool) {
	org, ok := h.loadOrg(c)
	if !ok {
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if org.AdminID != userID {
		response.Forbidden(c, "only the organization admin may do this")
		return nil, false
	}
	return org, true
}
