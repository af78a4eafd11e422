package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/middleware"
	"github.com/eventhive/backend/internal/models"
	"github.com/eventhive/backend/pkg/response"
	"github.com/eventhive/backend/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"` // optional, defaults to MEMBER
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register. An email invited before signup may
// already have a passwordless user row; registering claims it by setting the
// password instead of failing on the duplicate email.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleMember
	if req.Role != "" {
		switch models.Role(req.Role) {
		case models.RoleAdmin, models.RoleMember, models.RoleClient:
			role = models.Role(req.Role)
		default:
			response.BadRequest(c, "invalid role")
			return
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("register lookup failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	var user *models.User
	if existing != nil {
		if existing.Password != "" {
			response.BadRequest(c, "email already registered")
			return
		}
		if err := h.repo.SetPassword(c.Request.Context(), existing.ID, hash); err != nil {
			h.logger.Error("claim invited user failed", zap.String("user_id", existing.ID.String()), zap.Error(err))
			response.Internal(c, "failed to create user")
			return
		}
		existing.Password = hash
		user = existing
	} else {
		user, err = h.repo.Create(c.Request.Context(), req.Email, hash, req.FirstName, req.LastName, role)
		if err != nil {
			h.logger.Error("create user failed", zap.Error(err))
			response.Internal(c, "failed to create user")
			return
		}
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || user == nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	// Lazily created invitees have no password until they register.
	if user.Password == "" || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	c.JSON(http.StatusOK, response.Body{Success: true, Data: TokenResponse{Token: token, User: user.ToPublic()}})
}

// Me handles GET /me. Returns the authenticated user.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// UsersByRole handles GET /users/by-role (admin only). Returns every user's
// email grouped by platform role.
func (h *Handler) UsersByRole(c *gin.Context) {
	grouped, err := h.repo.EmailsByRole(c.Request.Context())
	if err != nil {
		h.logger.Error("emails by role failed", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, grouped)
}
