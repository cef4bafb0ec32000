package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ansar30/pulse/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Create persists the message and bumps the channel's updated_at in the
// same transaction, so a channel's recency never disagrees with its
// history. The id comes back from the bigserial sequence.
func (s *MessageStore) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var stored models.Message
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (channel_id, user_id, content, type, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, channel_id, user_id, content, type, created_at`,
		msg.ChannelID, msg.UserID, msg.Content, msg.Type,
	).Scan(&stored.ID, &stored.ChannelID, &stored.UserID, &stored.Content, &stored.Type, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE channels SET updated_at = now() WHERE id = $1`, msg.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("touch channel: %w", err)
	}

	err = tx.QueryRow(ctx, `SELECT display_name FROM users WHERE id = $1`, stored.UserID).
		Scan(&stored.AuthorName)
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("load author: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit message: %w", err)
	}
	return &stored, nil
}

// ListByChannel pages backward through history.
//
// before=0 means "start from the newest". before=N means "strictly older
// than message N". Ordering is by id DESC: the bigserial is monotonic, so
// it matches created_at order and breaks timestamp ties by insertion.
func (s *MessageStore) ListByChannel(ctx context.Context, channelID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	var query string
	var args []any

	if before > 0 {
		query = `
			SELECT m.id, m.channel_id, m.user_id, m.content, m.type, u.display_name, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.user_id
			WHERE m.channel_id = $1 AND m.id < $2
			ORDER BY m.id DESC
			LIMIT $3`
		args = []any{channelID, before, limit}
	} else {
		query = `
			SELECT m.id, m.channel_id, m.user_id, m.content, m.type, u.display_name, m.created_at
			FROM messages m
			JOIN users u ON u.id = m.user_id
			WHERE m.channel_id = $1
			ORDER BY m.id DESC
			LIMIT $2`
		args = []any{channelID, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID, &msg.ChannelID, &msg.UserID, &msg.Content, &msg.Type, &msg.AuthorName, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// DeleteByAuthor folds the authorization into the WHERE clause. A wrong
// author or a missing id both delete zero rows, which the service treats
// as a silent no-op rather than an error.
func (s *MessageStore) DeleteByAuthor(ctx context.Context, messageID int64, userID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM messages
		WHERE id = $1 AND user_id = $2`,
		messageID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("delete message: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *MessageStore) LatestPreview(ctx context.Context, channelID uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.pool.QueryRow(ctx, `
		SELECT m.id, m.channel_id, m.user_id, m.content, m.type, u.display_name, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1 AND m.type <> 'SYSTEM'
		ORDER BY m.id DESC
		LIMIT 1`,
		channelID,
	).Scan(&msg.ID, &msg.ChannelID, &msg.UserID, &msg.Content, &msg.Type, &msg.AuthorName, &msg.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest preview: %w", err)
	}
	return &msg, nil
}
