package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/chat"
	"github.com/ansar30/pulse/internal/middleware"
	"github.com/ansar30/pulse/internal/models"
)

// ChannelHandler exposes the channel directory and the DM resolver over
// HTTP. It holds services, not repositories: the invariants (one OWNER,
// two-tier membership policy, one DM per pair) live in the chat package,
// and this layer only parses, delegates and maps errors.
type ChannelHandler struct {
	directory *chat.Directory
	direct    *chat.DirectResolver
	logger    *zap.Logger
}

func NewChannelHandler(directory *chat.Directory, direct *chat.DirectResolver, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{directory: directory, direct: direct, logger: logger}
}

type createChannelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Create handles POST /v1/channels
func (h *ChannelHandler) Create(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.directory.Create(c.Request.Context(), middleware.GetPrincipal(c), chat.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Type:        models.ChannelType(req.Type),
	})
	if err != nil {
		respondError(c, h.logger, err, "create channel")
		return
	}

	c.JSON(http.StatusCreated, ch)
}

// List handles GET /v1/channels
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.directory.ListVisible(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "list channels")
		return
	}
	c.JSON(http.StatusOK, channels)
}

// ListDirect handles GET /v1/channels/direct
func (h *ChannelHandler) ListDirect(c *gin.Context) {
	dms, err := h.directory.ListDirect(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "list direct channels")
		return
	}
	c.JSON(http.StatusOK, dms)
}

// ListAvailable handles GET /v1/channels/available
func (h *ChannelHandler) ListAvailable(c *gin.Context) {
	channels, err := h.directory.ListAvailable(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err, "list available channels")
		return
	}
	c.JSON(http.StatusOK, channels)
}

// GetByID handles GET /v1/channels/:id
func (h *ChannelHandler) GetByID(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ch, err := h.directory.Get(c.Request.Context(), middleware.GetTenantID(c), channelID)
	if err != nil {
		respondError(c, h.logger, err, "get channel")
		return
	}

	c.JSON(http.StatusOK, ch)
}

// Delete handles DELETE /v1/channels/:id
func (h *ChannelHandler) Delete(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	if err := h.directory.Delete(c.Request.Context(), middleware.GetPrincipal(c), channelID); err != nil {
		respondError(c, h.logger, err, "delete channel")
		return
	}

	c.Status(http.StatusNoContent)
}

type createDirectRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// CreateDirect handles POST /v1/channels/direct
//
// Find-or-create: repeated calls for the same peer return the same channel.
func (h *ChannelHandler) CreateDirect(c *gin.Context) {
	var req createDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch, err := h.direct.FindOrCreate(c.Request.Context(), middleware.GetTenantID(c), middleware.GetUserID(c), req.UserID)
	if err != nil {
		respondError(c, h.logger, err, "create direct channel")
		return
	}

	c.JSON(http.StatusOK, ch)
}
