package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/chat"
	"github.com/ansar30/pulse/internal/middleware"
)

// MembershipHandler covers the membership mutations: self-service
// join/leave (PUBLIC channels only), the creator/admin-driven add/remove
// batch operations, and the read cursor.
type MembershipHandler struct {
	directory *chat.Directory
	logger    *zap.Logger
}

func NewMembershipHandler(directory *chat.Directory, logger *zap.Logger) *MembershipHandler {
	return &MembershipHandler{directory: directory, logger: logger}
}

// Join handles POST /v1/channels/:id/join
//
// Self-join, idempotent. The role is always MEMBER — only channel creation
// assigns OWNER.
func (h *MembershipHandler) Join(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	m, err := h.directory.Join(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), channelID)
	if err != nil {
		respondError(c, h.logger, err, "join channel")
		return
	}

	c.JSON(http.StatusOK, m)
}

// Leave handles POST /v1/channels/:id/leave
func (h *MembershipHandler) Leave(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	if err := h.directory.Leave(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), channelID); err != nil {
		respondError(c, h.logger, err, "leave channel")
		return
	}

	c.Status(http.StatusNoContent)
}

type addMembersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required,min=1"`
}

// AddMembers handles POST /v1/channels/:id/members
//
// Creator-or-admin only: this is the path PRIVATE membership moves
// through, so the policy gate sits here, before the directory's
// tenant-batch validation.
func (h *MembershipHandler) AddMembers(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req addMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := middleware.GetPrincipal(c)
	ch, err := h.directory.Get(c.Request.Context(), p.TenantID, channelID)
	if err != nil {
		respondError(c, h.logger, err, "add members")
		return
	}
	if !p.Role.CanManageChannels() && ch.CreatedBy != p.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	added, err := h.directory.AddMembers(c.Request.Context(), p.TenantID, channelID, req.UserIDs)
	if err != nil {
		respondError(c, h.logger, err, "add members")
		return
	}

	c.JSON(http.StatusOK, gin.H{"added": added})
}

// RemoveMember handles DELETE /v1/channels/:id/members/:userId
func (h *MembershipHandler) RemoveMember(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	err = h.directory.RemoveMember(c.Request.Context(), middleware.GetTenantID(c), channelID, targetID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "remove member")
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkRead handles POST /v1/channels/:id/read
func (h *MembershipHandler) MarkRead(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	if err := h.directory.MarkRead(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), channelID); err != nil {
		respondError(c, h.logger, err, "mark channel read")
		return
	}

	c.Status(http.StatusNoContent)
}
