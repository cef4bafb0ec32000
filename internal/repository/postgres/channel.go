package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ansar30/pulse/internal/chat"
	"github.com/ansar30/pulse/internal/models"
)

// uniqueViolation is the Postgres error code for a unique-constraint hit.
// Insert races (membership PK, DM pair index) surface through it and are
// converted to chat.ErrConflict for the service layer to retry as a lookup.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

const channelColumns = `id, tenant_id, name, description, type, created_by, dm_user_lo, dm_user_hi, created_at, updated_at`

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var ch models.Channel
	err := row.Scan(
		&ch.ID,
		&ch.TenantID,
		&ch.Name,
		&ch.Description,
		&ch.Type,
		&ch.CreatedBy,
		&ch.DMUserLo,
		&ch.DMUserHi,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Create inserts the channel and its initial memberships in one transaction:
// the channel never exists without its OWNER row (or, for DIRECT, its two
// MEMBER rows).
func (s *ChannelStore) Create(ctx context.Context, ch *models.Channel, memberships []models.Membership) (*models.Channel, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO channels (id, tenant_id, name, description, type, created_by, dm_user_lo, dm_user_hi, created_at, updated_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING ` + channelColumns

	created, err := scanChannel(tx.QueryRow(ctx, query,
		ch.TenantID, ch.Name, ch.Description, ch.Type, ch.CreatedBy, ch.DMUserLo, ch.DMUserHi,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert channel: %w", chat.ErrConflict)
		}
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	for _, m := range memberships {
		_, err := tx.Exec(ctx, `
			INSERT INTO channel_members (channel_id, user_id, role, joined_at)
			VALUES ($1, $2, $3, now())`,
			created.ID, m.UserID, m.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("insert membership: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("commit channel: %w", chat.ErrConflict)
		}
		return nil, fmt.Errorf("commit channel: %w", err)
	}
	return created, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, tenantID, channelID uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE id = $1 AND tenant_id = $2`

	ch, err := scanChannel(s.pool.QueryRow(ctx, query, channelID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return ch, nil
}

func (s *ChannelStore) ListVisible(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	// PUBLIC channels of the tenant, plus PRIVATE ones the user created or
	// joined. DIRECT never shows up here.
	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		WHERE c.tenant_id = $1
		  AND (
			c.type = 'PUBLIC'
			OR (c.type = 'PRIVATE' AND (
				c.created_by = $2
				OR EXISTS (
					SELECT 1 FROM channel_members m
					WHERE m.channel_id = c.id AND m.user_id = $2
				)
			))
		  )
		ORDER BY c.updated_at DESC`

	return s.queryChannels(ctx, query, tenantID, userID)
}

func (s *ChannelStore) ListDirect(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		WHERE c.tenant_id = $1
		  AND c.type = 'DIRECT'
		  AND EXISTS (
			SELECT 1 FROM channel_members m
			WHERE m.channel_id = c.id AND m.user_id = $2
		  )
		ORDER BY c.updated_at DESC`

	return s.queryChannels(ctx, query, tenantID, userID)
}

func (s *ChannelStore) ListAvailable(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		WHERE c.tenant_id = $1
		  AND c.type = 'PUBLIC'
		  AND NOT EXISTS (
			SELECT 1 FROM channel_members m
			WHERE m.channel_id = c.id AND m.user_id = $2
		  )
		ORDER BY c.updated_at DESC`

	return s.queryChannels(ctx, query, tenantID, userID)
}

func (s *ChannelStore) FindDirect(ctx context.Context, tenantID, userLo, userHi uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE tenant_id = $1 AND type = 'DIRECT' AND dm_user_lo = $2 AND dm_user_hi = $3`

	ch, err := scanChannel(s.pool.QueryRow(ctx, query, tenantID, userLo, userHi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find direct channel: %w", err)
	}
	return ch, nil
}

// Delete removes the channel row; channel_members and messages rows go with
// it via ON DELETE CASCADE on their foreign keys.
func (s *ChannelStore) Delete(ctx context.Context, tenantID, channelID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM channels
		WHERE id = $1 AND tenant_id = $2`,
		channelID, tenantID,
	)
	if err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *ChannelStore) queryChannels(ctx context.Context, query string, args ...any) ([]models.Channel, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return channels, nil
}
