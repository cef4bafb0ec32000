package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ansar30/pulse/internal/models"
)

type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// Add inserts through the (channel_id, user_id) primary key. ON CONFLICT DO
// NOTHING makes a lost race indistinguishable from an ordinary repeat join:
// zero rows affected, created=false, no error. The caller's prior existence
// check is only a short-circuit; this is what actually holds under races.
func (s *MembershipStore) Add(ctx context.Context, m models.Membership) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO channel_members (channel_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (channel_id, user_id) DO NOTHING`,
		m.ChannelID, m.UserID, m.Role,
	)
	if err != nil {
		return false, fmt.Errorf("add member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AddBatch inserts the users in one statement, skipping existing rows, and
// returns the ids that were actually inserted.
func (s *MembershipStore) AddBatch(ctx context.Context, channelID uuid.UUID, userIDs []uuid.UUID, role models.MemberRole) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return []uuid.UUID{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		INSERT INTO channel_members (channel_id, user_id, role, joined_at)
		SELECT $1, u, $2, now() FROM unnest($3::uuid[]) AS u
		ON CONFLICT (channel_id, user_id) DO NOTHING
		RETURNING user_id`,
		channelID, role, userIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("add members: %w", err)
	}
	defer rows.Close()

	added := make([]uuid.UUID, 0, len(userIDs))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan added member: %w", err)
		}
		added = append(added, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate added members: %w", err)
	}
	return added, nil
}

// Remove deletes the membership. DELETE of an absent row affects zero rows
// and is not an error; the caller decides whether that means NotFound.
func (s *MembershipStore) Remove(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM channel_members
		WHERE channel_id = $1 AND user_id = $2`,
		channelID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("remove member: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *MembershipStore) Get(ctx context.Context, channelID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.pool.QueryRow(ctx, `
		SELECT channel_id, user_id, role, last_read, joined_at
		FROM channel_members
		WHERE channel_id = $1 AND user_id = $2`,
		channelID, userID,
	).Scan(&m.ChannelID, &m.UserID, &m.Role, &m.LastRead, &m.JoinedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

func (s *MembershipStore) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.channel_id, m.user_id, m.role, m.last_read, m.joined_at, u.display_name, u.email
		FROM channel_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1
		ORDER BY m.joined_at`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(
			&m.ChannelID, &m.UserID, &m.Role, &m.LastRead, &m.JoinedAt,
			&m.DisplayName, &m.Email,
		); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// IsMember uses SELECT EXISTS: Postgres stops at the first matching row,
// which matters because this runs before every message send.
func (s *MembershipStore) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM channel_members
			WHERE channel_id = $1 AND user_id = $2
		)`,
		channelID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *MembershipStore) SetLastRead(ctx context.Context, channelID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE channel_members SET last_read = now()
		WHERE channel_id = $1 AND user_id = $2`,
		channelID, userID,
	)
	if err != nil {
		return fmt.Errorf("set last read: %w", err)
	}
	return nil
}
