package ws

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansar30/pulse/internal/chat"
)

func TestMarshalEventEnvelope(t *testing.T) {
	userID := uuid.New()

	out, err := marshalEvent(EventUserTyping, typingPayload{UserID: userID, UserName: "ana"})
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(out, &env))
	assert.Equal(t, EventUserTyping, env.Event)

	var payload typingPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, "ana", payload.UserName)
}

func TestUserFacingHidesInternals(t *testing.T) {
	assert.Equal(t, "channel not found", userFacing(chat.ErrNotFound))
	assert.Equal(t, "you are not a member of this channel", userFacing(chat.ErrForbidden))
	assert.Equal(t, "invalid message", userFacing(chat.ErrInvalid))
	assert.Equal(t, "failed to send message", userFacing(errors.New("pq: connection reset")))
}
