package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/models"
	"github.com/ansar30/pulse/internal/repository"
)

// membershipTTL backstops invalidation: even if a delete to Redis is lost,
// a stale answer lives at most this long.
const membershipTTL = 30 * time.Second

// Membership is a read-through cache over a MembershipRepository. Only
// IsMember — the check run before every message send — is cached; every
// successful mutation deletes the affected keys.
//
// Redis is an accelerator, never an authority: any Redis error falls
// through to the inner store and is logged at debug level only.
type Membership struct {
	inner  repository.MembershipRepository
	rdb    *redis.Client
	logger *zap.Logger
}

var _ repository.MembershipRepository = (*Membership)(nil)

func NewMembership(inner repository.MembershipRepository, rdb *redis.Client, logger *zap.Logger) *Membership {
	return &Membership{inner: inner, rdb: rdb, logger: logger}
}

func memberKey(channelID, userID uuid.UUID) string {
	return fmt.Sprintf("member:%s:%s", channelID, userID)
}

func (c *Membership) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	key := memberKey(channelID, userID)

	val, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case err != redis.Nil:
		c.logger.Debug("membership cache read failed", zap.Error(err))
	}

	member, err := c.inner.IsMember(ctx, channelID, userID)
	if err != nil {
		return false, err
	}

	cached := "0"
	if member {
		cached = "1"
	}
	if err := c.rdb.Set(ctx, key, cached, membershipTTL).Err(); err != nil {
		c.logger.Debug("membership cache write failed", zap.Error(err))
	}
	return member, nil
}

func (c *Membership) Add(ctx context.Context, m models.Membership) (bool, error) {
	created, err := c.inner.Add(ctx, m)
	if err == nil {
		c.invalidate(ctx, m.ChannelID, m.UserID)
	}
	return created, err
}

func (c *Membership) AddBatch(ctx context.Context, channelID uuid.UUID, userIDs []uuid.UUID, role models.MemberRole) ([]uuid.UUID, error) {
	added, err := c.inner.AddBatch(ctx, channelID, userIDs, role)
	if err == nil {
		c.invalidate(ctx, channelID, userIDs...)
	}
	return added, err
}

func (c *Membership) Remove(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	removed, err := c.inner.Remove(ctx, channelID, userID)
	if err == nil {
		c.invalidate(ctx, channelID, userID)
	}
	return removed, err
}

func (c *Membership) Get(ctx context.Context, channelID, userID uuid.UUID) (*models.Membership, error) {
	return c.inner.Get(ctx, channelID, userID)
}

func (c *Membership) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.Member, error) {
	return c.inner.ListByChannel(ctx, channelID)
}

func (c *Membership) SetLastRead(ctx context.Context, channelID, userID uuid.UUID) error {
	return c.inner.SetLastRead(ctx, channelID, userID)
}

func (c *Membership) invalidate(ctx context.Context, channelID uuid.UUID, userIDs ...uuid.UUID) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, memberKey(channelID, id))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("membership cache invalidation failed", zap.Error(err))
	}
}
