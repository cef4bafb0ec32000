package chat

import (
	"github.com/google/uuid"

	"github.com/ansar30/pulse/internal/models"
)

// Principal is the already-authenticated caller. The core never validates
// credentials — it receives this from the transport layer (JWT middleware
// over HTTP, the upgrade handshake over WebSocket) and trusts it.
type Principal struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     models.TenantRole
}
