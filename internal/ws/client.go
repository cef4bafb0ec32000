package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/chat"
	"github.com/ansar30/pulse/internal/models"
	"github.com/ansar30/pulse/internal/observ"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// opTimeout bounds the persistence call behind a single socket event.
	opTimeout = 10 * time.Second

	// sendBuffer is the per-client outbound queue. A client that cannot
	// drain it is closed rather than allowed to block the fan-out path.
	sendBuffer = 64
)

// Client is one authenticated socket connection. Inbound events are
// handled to completion on the read pump, one at a time; outbound frames
// go through the buffered send channel drained by the write pump.
type Client struct {
	hub       *Hub
	log       *chat.MessageLog
	conn      *websocket.Conn
	principal chat.Principal
	send      chan []byte
	logger    *zap.Logger
}

func newClient(hub *Hub, log *chat.MessageLog, conn *websocket.Conn, principal chat.Principal, logger *zap.Logger) *Client {
	return &Client{
		hub:       hub,
		log:       log,
		conn:      conn,
		principal: principal,
		send:      make(chan []byte, sendBuffer),
		logger:    logger,
	}
}

// Enqueue implements Conn. It never blocks: when the buffer is full the
// frame is dropped and the connection closed — a reconnecting client
// re-pages history, which by persist-then-broadcast ordering has
// everything it may have missed.
func (c *Client) Enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.logger.Warn("dropping slow websocket client",
			zap.String("user_id", c.principal.UserID.String()))
		c.conn.Close()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.DropAll(c)
		c.conn.Close()
		observ.OpenConnections.Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		c.handleEvent(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvent dispatches one inbound frame. Each event runs to completion
// before the next frame is read, so room mutations never interleave.
func (c *Client) handleEvent(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("malformed event")
		return
	}

	var payload inboundPayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			c.sendError("malformed event payload")
			return
		}
	}

	switch env.Event {
	case EventJoinChannel:
		c.hub.Join(c, payload.ChannelID)
	case EventLeaveChannel:
		c.hub.Leave(c, payload.ChannelID)
	case EventSendMessage:
		c.sendMessage(payload)
	case EventTyping:
		out, err := marshalEvent(EventUserTyping, typingPayload{
			UserID:   c.principal.UserID,
			UserName: payload.UserName,
		})
		if err == nil {
			c.hub.BroadcastExcept(payload.ChannelID, c, out)
		}
	case EventStopTyping:
		out, err := marshalEvent(EventUserStoppedTyping, typingPayload{
			UserID: c.principal.UserID,
		})
		if err == nil {
			c.hub.BroadcastExcept(payload.ChannelID, c, out)
		}
	default:
		c.sendError("unknown event: " + env.Event)
	}
}

// sendMessage persists first and broadcasts second, never the reverse: a
// client that reconnects and re-pages history must not see a gap relative
// to what was broadcast live. On failure only the sender hears about it.
func (c *Client) sendMessage(payload inboundPayload) {
	// Clients may label the payload TEXT or leave the type empty. SYSTEM
	// is reserved for notices the core writes itself; a client claiming
	// it is told so rather than silently coerced.
	if payload.Type != "" && payload.Type != string(models.MessageText) {
		c.sendError("invalid message type")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	msg, err := c.log.Append(ctx, c.principal.TenantID, payload.ChannelID, c.principal.UserID, payload.Content)
	if err != nil {
		c.sendError(userFacing(err))
		return
	}

	out, err := marshalEvent(EventNewMessage, msg)
	if err != nil {
		c.sendError("failed to encode message")
		return
	}
	c.hub.Broadcast(payload.ChannelID, out)
}

func (c *Client) sendError(message string) {
	out, err := marshalEvent(EventError, errorPayload{Message: message})
	if err != nil {
		return
	}
	c.Enqueue(out)
}

// userFacing maps core errors onto messages safe to show the sender.
func userFacing(err error) string {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return "channel not found"
	case errors.Is(err, chat.ErrForbidden):
		return "you are not a member of this channel"
	case errors.Is(err, chat.ErrInvalid):
		return "invalid message"
	default:
		return "failed to send message"
	}
}
