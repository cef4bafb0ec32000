package ws

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/observ"
)

// Conn is the one-way sink the hub fans out to. *Client implements it over
// a real socket; tests implement it with a slice.
type Conn interface {
	Enqueue(payload []byte)
}

// Hub owns the room map: room key → set of connections currently receiving
// broadcasts for one channel. It is the only in-memory mutable shared
// state of the gateway and nothing else reads or writes it.
//
// Joining a room is cheap and idempotent and carries no membership check —
// membership is enforced where it matters, on the persisted send. A room
// subscription leaks nothing by itself: history and new messages only
// reach a client through the access-checked paths.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[Conn]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[Conn]struct{}),
		logger: logger,
	}
}

// RoomKey is the room naming scheme, shared with clients.
func RoomKey(channelID uuid.UUID) string {
	return "channel:" + channelID.String()
}

func (h *Hub) Join(conn Conn, channelID uuid.UUID) {
	key := RoomKey(channelID)

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[key]
	if !ok {
		room = make(map[Conn]struct{})
		h.rooms[key] = room
	}
	room[conn] = struct{}{}
}

func (h *Hub) Leave(conn Conn, channelID uuid.UUID) {
	key := RoomKey(channelID)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(conn, key)
}

// DropAll removes the connection from every room; called on disconnect.
// Membership state is untouched — disconnection is a transport event, not
// a membership change.
func (h *Hub) DropAll(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for key := range h.rooms {
		h.removeLocked(conn, key)
	}
}

// Broadcast fans a payload out to every connection in the room, the sender
// included. Enqueue never blocks on I/O, so one slow client cannot stall
// the room.
func (h *Hub) Broadcast(channelID uuid.UUID, payload []byte) {
	h.fanOut(channelID, payload, nil)
	observ.MessagesBroadcast.Inc()
}

// BroadcastExcept sends to everyone in the room but the given connection;
// typing notices never echo back to their author.
func (h *Hub) BroadcastExcept(channelID uuid.UUID, except Conn, payload []byte) {
	h.fanOut(channelID, payload, except)
}

// RoomSize reports how many connections a room currently holds.
func (h *Hub) RoomSize(channelID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms[RoomKey(channelID)])
}

func (h *Hub) fanOut(channelID uuid.UUID, payload []byte, except Conn) {
	key := RoomKey(channelID)

	h.mu.Lock()
	targets := make([]Conn, 0, len(h.rooms[key]))
	for conn := range h.rooms[key] {
		if conn != except {
			targets = append(targets, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range targets {
		conn.Enqueue(payload)
	}
}

func (h *Hub) removeLocked(conn Conn, key string) {
	room, ok := h.rooms[key]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, key)
	}
}
