package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType is a closed enumeration. Every call site that branches on it
// switches exhaustively, so adding a fourth type forces a compile-visible
// sweep of join-eligibility, read-visibility, and DM-listing logic.
type ChannelType string

const (
	ChannelPublic  ChannelType = "PUBLIC"
	ChannelPrivate ChannelType = "PRIVATE"
	ChannelDirect  ChannelType = "DIRECT"
)

func (t ChannelType) Valid() bool {
	switch t {
	case ChannelPublic, ChannelPrivate, ChannelDirect:
		return true
	}
	return false
}

// MessageType separates user text from notices the core writes itself.
// SYSTEM messages are never accepted from client input.
type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageSystem MessageType = "SYSTEM"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageSystem:
		return true
	}
	return false
}

// MemberRole is the per-channel role. Exactly one OWNER exists per channel
// (the creator), assigned at creation and never reassigned.
type MemberRole string

const (
	RoleOwner  MemberRole = "OWNER"
	RoleMember MemberRole = "MEMBER"
)

// TenantRole is the tenant-wide role carried by the authenticated principal.
type TenantRole string

const (
	TenantSuperAdmin TenantRole = "SUPER_ADMIN"
	TenantAdmin      TenantRole = "ADMIN"
	TenantMember     TenantRole = "MEMBER"
)

// CanManageChannels reports whether the role may create channels or delete
// channels it does not own.
func (r TenantRole) CanManageChannels() bool {
	switch r {
	case TenantSuperAdmin, TenantAdmin:
		return true
	case TenantMember:
		return false
	}
	return false
}

// Tenant is the top-level isolation boundary. Every channel, membership and
// message below belongs to exactly one tenant and no query crosses it.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a person within a tenant. The display name is what system
// messages ("<name> joined the channel") are generated from.
type User struct {
	ID           uuid.UUID  `json:"id"`
	TenantID     uuid.UUID  `json:"tenant_id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         TenantRole `json:"role"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Channel is a conversational space within a tenant.
//
// TenantID and Type are immutable after creation. UpdatedAt is bumped on
// every new message and drives recency ordering in channel lists. DIRECT
// channels carry a synthetic name that clients never display; the sorted
// participant pair (DMUserLo, DMUserHi) backs the one-DM-per-pair
// uniqueness guard.
type Channel struct {
	ID          uuid.UUID   `json:"id"`
	TenantID    uuid.UUID   `json:"tenant_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Type        ChannelType `json:"type"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	DMUserLo    *uuid.UUID  `json:"-"`
	DMUserHi    *uuid.UUID  `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Membership is the join table granting a user participation rights in a
// channel. Unique per (channel, user) at the storage layer — the primary
// key, not an application check, is what holds under concurrent joins.
type Membership struct {
	ChannelID uuid.UUID  `json:"channel_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      MemberRole `json:"role"`
	LastRead  *time.Time `json:"last_read,omitempty"`
	JoinedAt  time.Time  `json:"joined_at"`
}

// Member is a membership row expanded with the user's display profile,
// the shape channel listings return.
type Member struct {
	Membership
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Message is a single entry in a channel's append-only history.
//
// IDs are bigserial: monotonically increasing, so id order matches
// insertion order and doubles as the pagination cursor with created_at
// ties broken for free.
type Message struct {
	ID         int64       `json:"id"`
	ChannelID  uuid.UUID   `json:"channel_id"`
	UserID     uuid.UUID   `json:"user_id"`
	Content    string      `json:"content"`
	Type       MessageType `json:"type"`
	AuthorName string      `json:"author_name,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// ChannelWithMembers is a channel expanded with its member list.
type ChannelWithMembers struct {
	Channel
	Members []Member `json:"members"`
}

// DirectChannel is a DIRECT channel annotated with its most recent
// non-SYSTEM message for list previews.
type DirectChannel struct {
	Channel
	Preview *Message `json:"preview,omitempty"`
}
