package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ansar30/pulse/internal/models"
)

// Every method takes a context.Context — these all hit the network, and the
// HTTP request's context cancels the query when the client goes away.
//
// tenantID appears on every lookup that can be reached with a guessed id.
// The repository never trusts the caller to have scoped the query; it
// filters by tenant itself, so a cross-tenant id degrades to "no rows".

// ChannelRepository is the contract for channel data operations.
type ChannelRepository interface {
	// Create inserts a channel and its creator's OWNER membership in one
	// transaction. For DIRECT channels memberships carries the two MEMBER
	// rows instead and the dm pair columns are populated; a unique-index
	// violation on the pair surfaces as chat.ErrConflict.
	Create(ctx context.Context, ch *models.Channel, memberships []models.Membership) (*models.Channel, error)

	// GetByID returns a channel scoped to the tenant. Returns nil, nil
	// when not found (or when the id lives in another tenant).
	GetByID(ctx context.Context, tenantID, channelID uuid.UUID) (*models.Channel, error)

	// ListVisible returns PUBLIC channels of the tenant plus PRIVATE
	// channels the user created or belongs to, newest activity first.
	// DIRECT channels are excluded.
	ListVisible(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error)

	// ListDirect returns DIRECT channels the user belongs to, newest
	// activity first.
	ListDirect(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error)

	// ListAvailable returns PUBLIC channels of the tenant the user has
	// not joined.
	ListAvailable(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error)

	// FindDirect returns the DIRECT channel for the sorted user pair, or
	// nil, nil if none exists yet.
	FindDirect(ctx context.Context, tenantID, userLo, userHi uuid.UUID) (*models.Channel, error)

	// Delete removes the channel and cascades to memberships and
	// messages. Reports whether a row was deleted.
	Delete(ctx context.Context, tenantID, channelID uuid.UUID) (bool, error)
}

// MembershipRepository handles who belongs to which channel.
type MembershipRepository interface {
	// Add inserts a membership row. Reports created=false when the
	// (channel, user) row already existed — the insert races through the
	// primary key, not a prior existence check.
	Add(ctx context.Context, m models.Membership) (created bool, err error)

	// AddBatch inserts several memberships, skipping ones that already
	// exist. Returns the user ids actually inserted.
	AddBatch(ctx context.Context, channelID uuid.UUID, userIDs []uuid.UUID, role models.MemberRole) ([]uuid.UUID, error)

	// Remove deletes a membership. Reports whether a row was removed.
	Remove(ctx context.Context, channelID, userID uuid.UUID) (bool, error)

	// Get returns a single membership, nil, nil when absent.
	Get(ctx context.Context, channelID, userID uuid.UUID) (*models.Membership, error)

	// ListByChannel returns members expanded with display profiles.
	ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.Member, error)

	// IsMember is the hot-path check run before every send.
	IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error)

	// SetLastRead stamps the member's read cursor.
	SetLastRead(ctx context.Context, channelID, userID uuid.UUID) error
}

// MessageRepository handles the append-only message history.
type MessageRepository interface {
	// Create persists a message and returns it with ID, CreatedAt and
	// the author's display name populated.
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)

	// ListByChannel pages backward: up to limit messages strictly older
	// than before (a message id; 0 means newest), ordered newest first.
	ListByChannel(ctx context.Context, channelID uuid.UUID, before int64, limit int) ([]models.Message, error)

	// DeleteByAuthor deletes the message only if userID authored it.
	// Zero rows affected is not an error.
	DeleteByAuthor(ctx context.Context, messageID int64, userID uuid.UUID) (bool, error)

	// LatestPreview returns the most recent non-SYSTEM message of the
	// channel, nil, nil when the channel has none. Kept as its own
	// method so the per-DM lookup loop can later become one batched
	// query without touching callers.
	LatestPreview(ctx context.Context, channelID uuid.UUID) (*models.Message, error)
}

// UserRepository handles user data.
type UserRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, email, displayName, passwordHash string, role models.TenantRole) (*models.User, error)

	// GetByID returns a user scoped to the tenant, nil, nil when absent.
	GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error)

	// GetByEmail is global (login happens before a tenant is known).
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// AllInTenant reports whether every given user belongs to the tenant.
	AllInTenant(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) (bool, error)
}

// TenantRepository handles workspace records.
type TenantRepository interface {
	Create(ctx context.Context, name string) (*models.Tenant, error)
}
