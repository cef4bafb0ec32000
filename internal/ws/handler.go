package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/auth"
	"github.com/ansar30/pulse/internal/chat"
	"github.com/ansar30/pulse/internal/models"
	"github.com/ansar30/pulse/internal/observ"
)

// Gateway upgrades HTTP requests to WebSocket connections and hands each
// one to the hub. Token verification happens at the upgrade handshake —
// once a Client exists, its principal is settled for the connection's
// lifetime.
type Gateway struct {
	hub      *Hub
	log      *chat.MessageLog
	secret   string
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewGateway(hub *Hub, log *chat.MessageLog, secret string, logger *zap.Logger) *Gateway {
	return &Gateway{
		hub:    hub,
		log:    log,
		secret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin enforcement belongs to the proxy in front of us;
			// the token is what authenticates the connection.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeWS handles GET /v1/ws?token=<jwt>.
//
// The token rides a query parameter because browser WebSocket clients
// cannot set an Authorization header on the upgrade request.
func (g *Gateway) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := auth.ParseToken(token, g.secret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(g.hub, g.log, conn, chat.Principal{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}, g.logger)

	observ.OpenConnections.Inc()
	g.logger.Debug("websocket connected",
		zap.String("user_id", claims.UserID.String()),
		zap.String("tenant_id", claims.TenantID.String()),
	)

	go client.writePump()
	go client.readPump()
}

// PublishMessage lets the HTTP send path fan a freshly persisted message
// out to the channel's room, keeping live clients in sync with REST
// senders. Persist-then-broadcast holds here too: callers pass a message
// that Append has already stored.
func (g *Gateway) PublishMessage(channelID uuid.UUID, msg *models.Message) {
	out, err := marshalEvent(EventNewMessage, msg)
	if err != nil {
		g.logger.Error("encode broadcast", zap.Error(err))
		return
	}
	g.hub.Broadcast(channelID, out)
}
