package ws

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Wire protocol: every frame in both directions is an envelope of
// {"event": <name>, "data": <payload>}.
const (
	// inbound
	EventJoinChannel  = "joinChannel"
	EventLeaveChannel = "leaveChannel"
	EventSendMessage  = "sendMessage"
	EventTyping       = "typing"
	EventStopTyping   = "stopTyping"

	// outbound
	EventNewMessage        = "newMessage"
	EventUserTyping        = "userTyping"
	EventUserStoppedTyping = "userStoppedTyping"
	EventError             = "error"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// inboundPayload is the union of inbound event payloads. The user_id field
// exists for wire compatibility only; the gateway always acts as the
// authenticated principal, never as a client-supplied id. Type, when
// present, must name TEXT — SYSTEM is rejected on the send path.
type inboundPayload struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Content   string    `json:"content,omitempty"`
	Type      string    `json:"type,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
}

type typingPayload struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// marshalEvent builds an outbound frame. Marshal errors can only come from
// our own payload types, so they are reported as an empty frame upstream
// rather than handled at every call site.
func marshalEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}
