package ws

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubConn records every frame it would have written to a socket.
type stubConn struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *stubConn) Enqueue(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, payload)
}

func (c *stubConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestBroadcastReachesWholeRoomIncludingSender(t *testing.T) {
	hub := NewHub(zap.NewNop())
	channel := uuid.New()
	sender := &stubConn{}
	peer := &stubConn{}
	outsider := &stubConn{}

	hub.Join(sender, channel)
	hub.Join(peer, channel)
	hub.Join(outsider, uuid.New())

	hub.Broadcast(channel, []byte("hello"))

	assert.Equal(t, 1, sender.count(), "sender hears its own message")
	assert.Equal(t, 1, peer.count())
	assert.Equal(t, 0, outsider.count(), "other rooms are untouched")
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	hub := NewHub(zap.NewNop())
	channel := uuid.New()
	typist := &stubConn{}
	peer := &stubConn{}

	hub.Join(typist, channel)
	hub.Join(peer, channel)

	hub.BroadcastExcept(channel, typist, []byte("typing"))

	assert.Equal(t, 0, typist.count(), "typing notices never echo back")
	assert.Equal(t, 1, peer.count())
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	channel := uuid.New()
	conn := &stubConn{}

	hub.Join(conn, channel)
	hub.Join(conn, channel)

	assert.Equal(t, 1, hub.RoomSize(channel))

	hub.Broadcast(channel, []byte("once"))
	assert.Equal(t, 1, conn.count(), "double join must not double-deliver")
}

func TestLeaveRemovesFromRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())
	channel := uuid.New()
	conn := &stubConn{}

	hub.Join(conn, channel)
	hub.Leave(conn, channel)

	assert.Equal(t, 0, hub.RoomSize(channel))
	hub.Broadcast(channel, []byte("gone"))
	assert.Equal(t, 0, conn.count())

	// Leaving again (or a room never joined) is a no-op.
	hub.Leave(conn, channel)
	hub.Leave(conn, uuid.New())
}

func TestDropAllClearsEveryRoom(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := uuid.New()
	b := uuid.New()
	conn := &stubConn{}
	stayer := &stubConn{}

	hub.Join(conn, a)
	hub.Join(conn, b)
	hub.Join(stayer, a)

	hub.DropAll(conn)

	assert.Equal(t, 1, hub.RoomSize(a), "other connections stay subscribed")
	assert.Equal(t, 0, hub.RoomSize(b))
}

func TestConcurrentJoinLeaveBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	channel := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &stubConn{}
			hub.Join(conn, channel)
			hub.Broadcast(channel, []byte("x"))
			hub.Leave(conn, channel)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.RoomSize(channel))
}
