package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/chat"
	"github.com/ansar30/pulse/internal/middleware"
	"github.com/ansar30/pulse/internal/ws"
)

// MessageHandler exposes the message log over HTTP. The send path also
// publishes to the socket room via the gateway, so clients polling over
// REST and clients on a live socket see the same stream.
type MessageHandler struct {
	log     *chat.MessageLog
	gateway *ws.Gateway
	logger  *zap.Logger
}

func NewMessageHandler(log *chat.MessageLog, gateway *ws.Gateway, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{log: log, gateway: gateway, logger: logger}
}

type createMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// Create handles POST /v1/channels/:id/messages
func (h *MessageHandler) Create(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.log.Append(c.Request.Context(), middleware.GetTenantID(c), channelID, middleware.GetUserID(c), req.Content)
	if err != nil {
		respondError(c, h.logger, err, "send message")
		return
	}

	// Persisted above; now the room hears about it.
	h.gateway.PublishMessage(channelID, msg)

	c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/channels/:id/messages?before=<messageId>&limit=50
//
// Backward cursor pagination: "before" is a message id, exclusive; omit it
// for the newest page. Responses come newest first; clients reverse for
// display and feed the oldest returned id into the next call.
func (h *MessageHandler) List(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	var before int64
	if b := c.Query("before"); b != "" {
		before, err = strconv.ParseInt(b, 10, 64)
		if err != nil || before < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter"})
			return
		}
	}

	limit := chat.DefaultPageSize
	if l := c.Query("limit"); l != "" {
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return
		}
	}

	page, err := h.log.PageHistory(c.Request.Context(), middleware.GetTenantID(c), channelID, middleware.GetUserID(c), before, limit)
	if err != nil {
		respondError(c, h.logger, err, "list messages")
		return
	}

	c.JSON(http.StatusOK, page)
}

// Delete handles DELETE /v1/messages/:messageId
//
// Author-only. The response is 204 whether a row was deleted or not; the
// status never reveals whether the message existed.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.log.Delete(c.Request.Context(), messageID, middleware.GetUserID(c)); err != nil {
		respondError(c, h.logger, err, "delete message")
		return
	}

	c.Status(http.StatusNoContent)
}
