package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/chat"
)

// respondError translates core errors into HTTP responses. NotFound,
// Forbidden and Invalid pass through with their user-visible meaning;
// anything else is a 500 with the detail kept in the log, not the body.
// Conflict never arrives here — the services retry it internally.
func respondError(c *gin.Context, logger *zap.Logger, err error, action string) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, chat.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	default:
		logger.Error("request failed", zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + action})
	}
}
