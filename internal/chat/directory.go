package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/models"
	"github.com/ansar30/pulse/internal/repository"
)

// RoomPublisher fans a persisted message out to the channel's live socket
// room. The websocket gateway satisfies it; nil disables live notices.
type RoomPublisher interface {
	PublishMessage(channelID uuid.UUID, msg *models.Message)
}

// Directory creates, lists and deletes channels and manages who belongs to
// them. Membership policy is two-tier and deliberate: self-service join is
// limited to PUBLIC channels, self-service leave to PUBLIC and PRIVATE;
// PRIVATE membership otherwise moves through the creator or a tenant
// admin, and a DIRECT channel's pair is fixed for its lifetime.
type Directory struct {
	channels    repository.ChannelRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	log         *MessageLog
	publisher   RoomPublisher
	logger      *zap.Logger
}

func NewDirectory(
	channels repository.ChannelRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	log *MessageLog,
	publisher RoomPublisher,
	logger *zap.Logger,
) *Directory {
	return &Directory{
		channels:    channels,
		memberships: memberships,
		users:       users,
		log:         log,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateParams carries the client-controlled fields of a new channel.
// Type defaults to PUBLIC; DIRECT is rejected here — DM channels only come
// into existence through the DirectResolver.
type CreateParams struct {
	Name        string
	Description string
	Type        models.ChannelType
}

// Create makes a channel and its creator's OWNER membership atomically.
// Only tenant admins may create channels.
func (d *Directory) Create(ctx context.Context, p Principal, params CreateParams) (*models.ChannelWithMembers, error) {
	if !p.Role.CanManageChannels() {
		return nil, fmt.Errorf("create channel: %w", ErrForbidden)
	}
	if params.Name == "" {
		return nil, fmt.Errorf("create channel: empty name: %w", ErrInvalid)
	}
	if params.Type == "" {
		params.Type = models.ChannelPublic
	}
	switch params.Type {
	case models.ChannelPublic, models.ChannelPrivate:
	case models.ChannelDirect:
		return nil, fmt.Errorf("create channel: direct channels are created by the DM resolver: %w", ErrInvalid)
	default:
		return nil, fmt.Errorf("create channel: unknown type %q: %w", params.Type, ErrInvalid)
	}

	ch, err := d.channels.Create(ctx, &models.Channel{
		TenantID:    p.TenantID,
		Name:        params.Name,
		Description: params.Description,
		Type:        params.Type,
		CreatedBy:   p.UserID,
	}, []models.Membership{
		{UserID: p.UserID, Role: models.RoleOwner},
	})
	if err != nil {
		return nil, err
	}

	members, err := d.memberships.ListByChannel(ctx, ch.ID)
	if err != nil {
		return nil, err
	}
	d.logger.Info("channel created",
		zap.String("channel_id", ch.ID.String()),
		zap.String("type", string(ch.Type)),
	)
	return &models.ChannelWithMembers{Channel: *ch, Members: members}, nil
}

// ListVisible returns what the user may see in the channel sidebar: all
// PUBLIC channels of the tenant plus PRIVATE ones they created or joined,
// most recent activity first. DIRECT channels are listed via ListDirect.
func (d *Directory) ListVisible(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	return d.channels.ListVisible(ctx, tenantID, userID)
}

// ListDirect returns the user's DM channels, each annotated with its most
// recent non-SYSTEM message. One preview lookup per channel, bounded by
// the caller's DM count; LatestPreview is a single repository method so a
// batched query can replace the loop without touching this code.
func (d *Directory) ListDirect(ctx context.Context, tenantID, userID uuid.UUID) ([]models.DirectChannel, error) {
	channels, err := d.channels.ListDirect(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	dms := make([]models.DirectChannel, 0, len(channels))
	for _, ch := range channels {
		preview, err := d.log.messages.LatestPreview(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		dms = append(dms, models.DirectChannel{Channel: ch, Preview: preview})
	}
	return dms, nil
}

// ListAvailable returns PUBLIC channels the user has not joined yet.
func (d *Directory) ListAvailable(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	return d.channels.ListAvailable(ctx, tenantID, userID)
}

// Get returns the channel with its members. A channel that lives in
// another tenant resolves to NotFound, never Forbidden — cross-tenant ids
// must not confirm existence.
func (d *Directory) Get(ctx context.Context, tenantID, channelID uuid.UUID) (*models.ChannelWithMembers, error) {
	ch, err := d.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("get channel: %w", ErrNotFound)
	}
	members, err := d.memberships.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return &models.ChannelWithMembers{Channel: *ch, Members: members}, nil
}

// Delete removes the channel and cascades to memberships and messages.
// Allowed for the creator and for tenant admins.
func (d *Directory) Delete(ctx context.Context, p Principal, channelID uuid.UUID) error {
	ch, err := d.channels.GetByID(ctx, p.TenantID, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("delete channel: %w", ErrNotFound)
	}
	if !p.Role.CanManageChannels() && ch.CreatedBy != p.UserID {
		return fmt.Errorf("delete channel: %w", ErrForbidden)
	}

	deleted, err := d.channels.Delete(ctx, p.TenantID, channelID)
	if err != nil {
		return err
	}
	if !deleted {
		// Raced with another delete; the channel is gone either way.
		return fmt.Errorf("delete channel: %w", ErrNotFound)
	}
	d.logger.Info("channel deleted", zap.String("channel_id", channelID.String()))
	return nil
}

// Join adds the caller to a PUBLIC channel. Idempotent: a repeat join
// returns the existing membership with no error and no second system
// message. The insert goes through the storage-level primary key, so two
// concurrent first joins still yield one row and one notice.
func (d *Directory) Join(ctx context.Context, tenantID, userID, channelID uuid.UUID) (*models.Membership, error) {
	ch, err := d.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("join channel: %w", ErrNotFound)
	}

	switch ch.Type {
	case models.ChannelPublic:
	case models.ChannelPrivate, models.ChannelDirect:
		return nil, fmt.Errorf("join channel: self-join is limited to public channels: %w", ErrForbidden)
	default:
		return nil, fmt.Errorf("join channel: unknown type %q: %w", ch.Type, ErrInvalid)
	}

	created, err := d.memberships.Add(ctx, models.Membership{
		ChannelID: channelID,
		UserID:    userID,
		Role:      models.RoleMember,
	})
	if err != nil {
		return nil, err
	}
	if created {
		d.appendNotice(ctx, tenantID, channelID, userID, SystemJoin)
	}

	m, err := d.memberships.Get(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		// Inserted above and already removed by a concurrent leave.
		return nil, fmt.Errorf("join channel: %w", ErrNotFound)
	}
	return m, nil
}

// Leave removes the caller's own membership. Leaving a channel you never
// joined is NotFound. The OWNER cannot leave: exactly one OWNER exists for
// the channel's whole lifetime. A DIRECT channel keeps its two memberships
// for life, so there is nothing to leave — members who want it gone stop
// reading it.
func (d *Directory) Leave(ctx context.Context, tenantID, userID, channelID uuid.UUID) error {
	ch, err := d.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("leave channel: %w", ErrNotFound)
	}

	switch ch.Type {
	case models.ChannelPublic, models.ChannelPrivate:
	case models.ChannelDirect:
		return fmt.Errorf("leave channel: direct channels have a fixed pair: %w", ErrForbidden)
	default:
		return fmt.Errorf("leave channel: unknown type %q: %w", ch.Type, ErrInvalid)
	}

	m, err := d.memberships.Get(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("leave channel: not a member: %w", ErrNotFound)
	}
	if m.Role == models.RoleOwner {
		return fmt.Errorf("leave channel: owner cannot leave: %w", ErrForbidden)
	}

	removed, err := d.memberships.Remove(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if removed {
		d.appendNotice(ctx, tenantID, channelID, userID, SystemLeave)
	}
	return nil
}

// appendNotice persists a membership-transition notice and fans it out to
// the channel's live room. Notice failures are logged, never surfaced: the
// membership change itself already succeeded.
func (d *Directory) appendNotice(ctx context.Context, tenantID, channelID, userID uuid.UUID, action SystemAction) {
	msg, err := d.log.AppendSystem(ctx, tenantID, channelID, userID, action)
	if err != nil {
		d.logger.Error("membership notice failed", zap.Error(err),
			zap.String("channel_id", channelID.String()),
			zap.String("action", string(action)))
		return
	}
	if d.publisher != nil {
		d.publisher.PublishMessage(channelID, msg)
	}
}

// AddMembers adds a batch of users to a channel. The whole batch is
// rejected if any user is outside the tenant; users already in the channel
// are skipped, the rest are inserted. Returns the ids actually added.
//
// Policy enforcement (creator-or-admin) sits with the caller; this method
// still refuses DIRECT channels, whose membership is fixed at two for life.
func (d *Directory) AddMembers(ctx context.Context, tenantID, channelID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("add members: empty batch: %w", ErrInvalid)
	}

	ch, err := d.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("add members: %w", ErrNotFound)
	}

	switch ch.Type {
	case models.ChannelPublic, models.ChannelPrivate:
	case models.ChannelDirect:
		return nil, fmt.Errorf("add members: direct channels have a fixed pair: %w", ErrInvalid)
	default:
		return nil, fmt.Errorf("add members: unknown type %q: %w", ch.Type, ErrInvalid)
	}

	ok, err := d.users.AllInTenant(ctx, tenantID, userIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("add members: user outside tenant: %w", ErrForbidden)
	}

	return d.memberships.AddBatch(ctx, channelID, userIDs, models.RoleMember)
}

// RemoveMember removes a member on behalf of the channel creator. Only the
// creator may remove members, and the creator themselves can never be
// removed. Tenant admins who want someone out of a channel they did not
// create delete the channel instead.
func (d *Directory) RemoveMember(ctx context.Context, tenantID, channelID, targetID, requesterID uuid.UUID) error {
	ch, err := d.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("remove member: %w", ErrNotFound)
	}
	if ch.CreatedBy != requesterID {
		return fmt.Errorf("remove member: %w", ErrForbidden)
	}
	if targetID == ch.CreatedBy {
		return fmt.Errorf("remove member: creator cannot be removed: %w", ErrForbidden)
	}

	removed, err := d.memberships.Remove(ctx, channelID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("remove member: not a member: %w", ErrNotFound)
	}
	return nil
}

// MarkRead stamps the caller's read cursor in the channel.
func (d *Directory) MarkRead(ctx context.Context, tenantID, userID, channelID uuid.UUID) error {
	ch, err := d.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return err
	}
	if ch == nil {
		return fmt.Errorf("mark read: %w", ErrNotFound)
	}
	m, err := d.memberships.Get(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("mark read: not a member: %w", ErrNotFound)
	}
	return d.memberships.SetLastRead(ctx, channelID, userID)
}
