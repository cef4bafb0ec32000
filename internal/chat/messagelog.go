package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/models"
	"github.com/ansar30/pulse/internal/observ"
	"github.com/ansar30/pulse/internal/repository"
)

const (
	// DefaultPageSize applies when the caller passes limit <= 0.
	DefaultPageSize = 50
	// MaxPageSize caps a single history page.
	MaxPageSize = 100
)

// SystemAction names a membership transition that produces a SYSTEM notice.
type SystemAction string

const (
	SystemJoin  SystemAction = "JOIN"
	SystemLeave SystemAction = "LEAVE"
)

// Page is one backward page of channel history, newest first. HasMore is
// false once a page comes back shorter than the requested limit; callers
// reverse the slice for chronological display.
type Page struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// MessageLog is the append-only per-channel history: writes, backward
// pagination, author-only deletion, and the SYSTEM notices the directory
// injects on membership transitions.
type MessageLog struct {
	channels    repository.ChannelRepository
	memberships repository.MembershipRepository
	users       repository.UserRepository
	messages    repository.MessageRepository
	logger      *zap.Logger
}

func NewMessageLog(
	channels repository.ChannelRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	messages repository.MessageRepository,
	logger *zap.Logger,
) *MessageLog {
	return &MessageLog{
		channels:    channels,
		memberships: memberships,
		users:       users,
		messages:    messages,
		logger:      logger,
	}
}

// Append persists a TEXT message. Membership is required to send in every
// channel type — PUBLIC read access does not imply write access. The
// channel's updated_at moves with the insert, so recency ordering in
// channel lists tracks the newest message.
func (l *MessageLog) Append(ctx context.Context, tenantID, channelID, userID uuid.UUID, content string) (*models.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("append message: empty content: %w", ErrInvalid)
	}

	ch, err := l.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("append message: %w", ErrNotFound)
	}

	member, err := l.memberships.IsMember(ctx, channelID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("append message: sender is not a member: %w", ErrForbidden)
	}

	msg, err := l.messages.Create(ctx, &models.Message{
		ChannelID: channelID,
		UserID:    userID,
		Content:   content,
		Type:      models.MessageText,
	})
	if err != nil {
		return nil, err
	}
	observ.MessagesPersisted.WithLabelValues(string(models.MessageText)).Inc()
	return msg, nil
}

// PageHistory returns up to limit messages strictly older than before
// (a message id; 0 starts at the newest), newest first. Reads are broader
// than writes: members always read, and PUBLIC channels are readable by
// any tenant user. Each poll is stateless and safe to repeat.
func (l *MessageLog) PageHistory(ctx context.Context, tenantID, channelID, userID uuid.UUID, before int64, limit int) (*Page, error) {
	ch, err := l.channels.GetByID(ctx, tenantID, channelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("page history: %w", ErrNotFound)
	}

	switch ch.Type {
	case models.ChannelPublic:
		// Readable by the whole tenant.
	case models.ChannelPrivate, models.ChannelDirect:
		member, err := l.memberships.IsMember(ctx, channelID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, fmt.Errorf("page history: %w", ErrForbidden)
		}
	default:
		return nil, fmt.Errorf("page history: unknown type %q: %w", ch.Type, ErrInvalid)
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	messages, err := l.messages.ListByChannel(ctx, channelID, before, limit)
	if err != nil {
		return nil, err
	}
	return &Page{
		Messages: messages,
		HasMore:  len(messages) == limit,
	}, nil
}

// Delete removes a message only when userID authored it. Anything else —
// wrong author, already gone, never existed — is a silent no-op by policy,
// not a lookup-then-403 flow.
func (l *MessageLog) Delete(ctx context.Context, messageID int64, userID uuid.UUID) error {
	deleted, err := l.messages.DeleteByAuthor(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		l.logger.Debug("message delete no-op",
			zap.Int64("message_id", messageID),
			zap.String("user_id", userID.String()),
		)
	}
	return nil
}

// AppendSystem writes a membership-transition notice on behalf of the
// core. No membership check: by the time a LEAVE notice is written the
// user's row is already gone.
func (l *MessageLog) AppendSystem(ctx context.Context, tenantID, channelID, userID uuid.UUID, action SystemAction) (*models.Message, error) {
	user, err := l.users.GetByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	name := "Someone"
	if user != nil {
		name = user.DisplayName
	}

	var content string
	switch action {
	case SystemJoin:
		content = fmt.Sprintf("%s joined the channel", name)
	case SystemLeave:
		content = fmt.Sprintf("%s left the channel", name)
	default:
		return nil, fmt.Errorf("append system message: unknown action %q: %w", action, ErrInvalid)
	}

	msg, err := l.messages.Create(ctx, &models.Message{
		ChannelID: channelID,
		UserID:    userID,
		Content:   content,
		Type:      models.MessageSystem,
	})
	if err != nil {
		return nil, err
	}
	observ.MessagesPersisted.WithLabelValues(string(models.MessageSystem)).Inc()
	return msg, nil
}
