package invitations

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventhive/backend/pkg/response"
)

// Handler handles the public invite-accept endpoint and invitation log
// read-back.
type Handler struct {
	stores *SQLStores
	logs   *LogRepository
	signer *TokenSigner
	logger *zap.Logger
}

// NewHandler creates an invitations handler.
func NewHandler(stores *SQLStores, logs *LogRepository, signer *TokenSigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{stores: stores, logs: logs, signer: signer, logger: logger}
}

// AcceptRequest is the body for POST /invite/accept.
type AcceptRequest struct {
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	InstagramID string `json:"instagram_id"`
}

// Accept handles POST /invite/accept?token=... Redeems a signed accept-link
// token, creating the user if needed and the membership row. An invitee who is
// already a member gets a success response, not an error.
func (h *Handler) Accept(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		response.BadRequest(c, "token required")
		return
	}
	claims, err := h.signer.Parse(tokenStr)
	if err != nil {
		response.BadRequest(c, "invalid or expired invite link")
		return
	}
	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "first_name and last_name required")
		return
	}

	user, alreadyMember, err := h.stores.AcceptInvite(c.Request.Context(), claims, AcceptParams{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		InstagramID: req.InstagramID,
	})
	if err != nil {
		if err == ErrScopeNotFound {
			response.NotFound(c, "organization or event not found")
			return
		}
		h.logger.Error("accept invite failed", zap.String("email", claims.Email), zap.Error(err))
		response.Internal(c, "failed to accept invitation")
		return
	}

	msg := "Invite accepted"
	if alreadyMember {
		msg = "Already a member"
	}
	response.OK(c, gin.H{
		"message": msg,
		"user_id": user.ID,
		"role":    user.Role,
	})
}
