package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/models"
	"github.com/ansar30/pulse/internal/repository"
)

// DirectResolver finds or creates the single DIRECT channel for an
// unordered user pair within a tenant.
//
// Find-or-create is race-safe, not check-then-act: the lookup is only a
// short-circuit. Two concurrent calls for the same pair can both miss it;
// the loser's insert hits the unique index over the sorted pair, comes
// back as ErrConflict, and is retried as a lookup.
type DirectResolver struct {
	channels repository.ChannelRepository
	users    repository.UserRepository
	logger   *zap.Logger
}

func NewDirectResolver(channels repository.ChannelRepository, users repository.UserRepository, logger *zap.Logger) *DirectResolver {
	return &DirectResolver{channels: channels, users: users, logger: logger}
}

// sortPair orders two user ids bytewise so {A,B} and {B,A} map to the same
// (lo, hi) key.
func sortPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

// FindOrCreate returns the DIRECT channel between userA (the caller, whose
// tenant scoping the transport already verified) and userB. A DM never
// crosses tenants: a userB outside the tenant is Forbidden even if the id
// is otherwise valid.
func (r *DirectResolver) FindOrCreate(ctx context.Context, tenantID, userA, userB uuid.UUID) (*models.Channel, error) {
	if userA == userB {
		return nil, fmt.Errorf("direct channel: cannot message yourself: %w", ErrInvalid)
	}

	peer, err := r.users.GetByID(ctx, tenantID, userB)
	if err != nil {
		return nil, err
	}
	if peer == nil {
		return nil, fmt.Errorf("direct channel: peer outside tenant: %w", ErrForbidden)
	}

	lo, hi := sortPair(userA, userB)

	existing, err := r.channels.FindDirect(ctx, tenantID, lo, hi)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	created, err := r.channels.Create(ctx, &models.Channel{
		TenantID: tenantID,
		// Synthetic, never displayed; clients render the peer's name.
		Name:      fmt.Sprintf("dm:%s:%s", lo, hi),
		Type:      models.ChannelDirect,
		CreatedBy: userA,
		DMUserLo:  &lo,
		DMUserHi:  &hi,
	}, []models.Membership{
		{UserID: userA, Role: models.RoleMember},
		{UserID: userB, Role: models.RoleMember},
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost the race: the other call created it. Look it up.
			winner, lookupErr := r.channels.FindDirect(ctx, tenantID, lo, hi)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if winner != nil {
				return winner, nil
			}
		}
		return nil, err
	}

	r.logger.Info("direct channel created",
		zap.String("channel_id", created.ID.String()),
		zap.String("tenant_id", tenantID.String()),
	)
	return created, nil
}
