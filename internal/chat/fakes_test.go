package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ansar30/pulse/internal/models"
	"github.com/ansar30/pulse/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres stores with the same
// observable semantics: tenant-scoped lookups return nil for foreign ids,
// membership inserts race through a uniqueness check under one lock, DM
// pair creation enforces the partial unique index, and message ids are a
// monotonic sequence. The fake* adapters below carve it into the four
// repository interfaces.
type memStore struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*models.Channel
	members  map[uuid.UUID]map[uuid.UUID]*models.Membership
	messages []*models.Message
	users    map[uuid.UUID]*models.User

	nextMsgID int64
	clock     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		channels: make(map[uuid.UUID]*models.Channel),
		members:  make(map[uuid.UUID]map[uuid.UUID]*models.Membership),
		users:    make(map[uuid.UUID]*models.User),
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so ordering assertions
// never depend on wall-clock resolution.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *memStore) addUser(tenantID uuid.UUID, name string, role models.TenantRole) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &models.User{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Email:       name + "@example.com",
		DisplayName: name,
		Role:        role,
		CreatedAt:   s.tick(),
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) createChannel(ch *models.Channel, memberships []models.Membership) (*models.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch.Type == models.ChannelDirect {
		for _, existing := range s.channels {
			if existing.Type == models.ChannelDirect &&
				existing.TenantID == ch.TenantID &&
				existing.DMUserLo != nil && *existing.DMUserLo == *ch.DMUserLo &&
				existing.DMUserHi != nil && *existing.DMUserHi == *ch.DMUserHi {
				return nil, fmt.Errorf("insert channel: %w", ErrConflict)
			}
		}
	}

	stored := *ch
	stored.ID = uuid.New()
	stored.CreatedAt = s.tick()
	stored.UpdatedAt = stored.CreatedAt
	s.channels[stored.ID] = &stored

	for _, m := range memberships {
		s.putMembershipLocked(stored.ID, m.UserID, m.Role)
	}
	cp := stored
	return &cp, nil
}

func (s *memStore) getChannel(tenantID, channelID uuid.UUID) *models.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.channels[channelID]
	if !ok || ch.TenantID != tenantID {
		return nil
	}
	cp := *ch
	return &cp
}

func (s *memStore) isMemberLocked(channelID, userID uuid.UUID) bool {
	_, ok := s.members[channelID][userID]
	return ok
}

func (s *memStore) putMembershipLocked(channelID, userID uuid.UUID, role models.MemberRole) {
	if s.members[channelID] == nil {
		s.members[channelID] = make(map[uuid.UUID]*models.Membership)
	}
	s.members[channelID][userID] = &models.Membership{
		ChannelID: channelID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  s.tick(),
	}
}

func (s *memStore) messagesIn(channelID uuid.UUID) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, 0)
	for _, m := range s.messages {
		if m.ChannelID == channelID {
			out = append(out, *m)
		}
	}
	return out
}

func sortByUpdatedDesc(chs []models.Channel) {
	sort.Slice(chs, func(i, j int) bool { return chs[i].UpdatedAt.After(chs[j].UpdatedAt) })
}

// --- repository.ChannelRepository ---

type fakeChannels struct{ s *memStore }

var _ repository.ChannelRepository = fakeChannels{}

func (f fakeChannels) Create(ctx context.Context, ch *models.Channel, memberships []models.Membership) (*models.Channel, error) {
	return f.s.createChannel(ch, memberships)
}

func (f fakeChannels) GetByID(ctx context.Context, tenantID, channelID uuid.UUID) (*models.Channel, error) {
	return f.s.getChannel(tenantID, channelID), nil
}

func (f fakeChannels) ListVisible(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	out := make([]models.Channel, 0)
	for _, ch := range f.s.channels {
		if ch.TenantID != tenantID {
			continue
		}
		switch ch.Type {
		case models.ChannelPublic:
			out = append(out, *ch)
		case models.ChannelPrivate:
			if ch.CreatedBy == userID || f.s.isMemberLocked(ch.ID, userID) {
				out = append(out, *ch)
			}
		case models.ChannelDirect:
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

func (f fakeChannels) ListDirect(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	out := make([]models.Channel, 0)
	for _, ch := range f.s.channels {
		if ch.TenantID == tenantID && ch.Type == models.ChannelDirect && f.s.isMemberLocked(ch.ID, userID) {
			out = append(out, *ch)
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

func (f fakeChannels) ListAvailable(ctx context.Context, tenantID, userID uuid.UUID) ([]models.Channel, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	out := make([]models.Channel, 0)
	for _, ch := range f.s.channels {
		if ch.TenantID == tenantID && ch.Type == models.ChannelPublic && !f.s.isMemberLocked(ch.ID, userID) {
			out = append(out, *ch)
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

func (f fakeChannels) FindDirect(ctx context.Context, tenantID, userLo, userHi uuid.UUID) (*models.Channel, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for _, ch := range f.s.channels {
		if ch.Type == models.ChannelDirect &&
			ch.TenantID == tenantID &&
			ch.DMUserLo != nil && *ch.DMUserLo == userLo &&
			ch.DMUserHi != nil && *ch.DMUserHi == userHi {
			cp := *ch
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeChannels) Delete(ctx context.Context, tenantID, channelID uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	ch, ok := f.s.channels[channelID]
	if !ok || ch.TenantID != tenantID {
		return false, nil
	}
	delete(f.s.channels, channelID)
	delete(f.s.members, channelID)

	kept := f.s.messages[:0]
	for _, m := range f.s.messages {
		if m.ChannelID != channelID {
			kept = append(kept, m)
		}
	}
	f.s.messages = kept
	return true, nil
}

// --- repository.MembershipRepository ---

type fakeMemberships struct{ s *memStore }

var _ repository.MembershipRepository = fakeMemberships{}

func (f fakeMemberships) Add(ctx context.Context, m models.Membership) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if f.s.isMemberLocked(m.ChannelID, m.UserID) {
		return false, nil
	}
	f.s.putMembershipLocked(m.ChannelID, m.UserID, m.Role)
	return true, nil
}

func (f fakeMemberships) AddBatch(ctx context.Context, channelID uuid.UUID, userIDs []uuid.UUID, role models.MemberRole) ([]uuid.UUID, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	added := make([]uuid.UUID, 0, len(userIDs))
	for _, id := range userIDs {
		if f.s.isMemberLocked(channelID, id) {
			continue
		}
		f.s.putMembershipLocked(channelID, id, role)
		added = append(added, id)
	}
	return added, nil
}

func (f fakeMemberships) Remove(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if !f.s.isMemberLocked(channelID, userID) {
		return false, nil
	}
	delete(f.s.members[channelID], userID)
	return true, nil
}

func (f fakeMemberships) Get(ctx context.Context, channelID, userID uuid.UUID) (*models.Membership, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	m, ok := f.s.members[channelID][userID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f fakeMemberships) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]models.Member, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	out := make([]models.Member, 0)
	for _, m := range f.s.members[channelID] {
		member := models.Member{Membership: *m}
		if u, ok := f.s.users[m.UserID]; ok {
			member.DisplayName = u.DisplayName
			member.Email = u.Email
		}
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (f fakeMemberships) IsMember(ctx context.Context, channelID, userID uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	return f.s.isMemberLocked(channelID, userID), nil
}

func (f fakeMemberships) SetLastRead(ctx context.Context, channelID, userID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if m, ok := f.s.members[channelID][userID]; ok {
		t := f.s.tick()
		m.LastRead = &t
	}
	return nil
}

// --- repository.MessageRepository ---

type fakeMessages struct{ s *memStore }

var _ repository.MessageRepository = fakeMessages{}

func (f fakeMessages) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	f.s.nextMsgID++
	stored := *msg
	stored.ID = f.s.nextMsgID
	stored.CreatedAt = f.s.tick()
	if u, ok := f.s.users[stored.UserID]; ok {
		stored.AuthorName = u.DisplayName
	}
	f.s.messages = append(f.s.messages, &stored)

	if ch, ok := f.s.channels[stored.ChannelID]; ok {
		ch.UpdatedAt = stored.CreatedAt
	}

	cp := stored
	return &cp, nil
}

func (f fakeMessages) ListByChannel(ctx context.Context, channelID uuid.UUID, before int64, limit int) ([]models.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	out := make([]models.Message, 0)
	for i := len(f.s.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := f.s.messages[i]
		if m.ChannelID != channelID {
			continue
		}
		if before > 0 && m.ID >= before {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (f fakeMessages) DeleteByAuthor(ctx context.Context, messageID int64, userID uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for i, m := range f.s.messages {
		if m.ID == messageID && m.UserID == userID {
			f.s.messages = append(f.s.messages[:i], f.s.messages[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f fakeMessages) LatestPreview(ctx context.Context, channelID uuid.UUID) (*models.Message, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for i := len(f.s.messages) - 1; i >= 0; i-- {
		m := f.s.messages[i]
		if m.ChannelID == channelID && m.Type != models.MessageSystem {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// --- repository.UserRepository ---

type fakeUsers struct{ s *memStore }

var _ repository.UserRepository = fakeUsers{}

func (f fakeUsers) Create(ctx context.Context, tenantID uuid.UUID, email, displayName, passwordHash string, role models.TenantRole) (*models.User, error) {
	return f.s.addUser(tenantID, displayName, role), nil
}

func (f fakeUsers) GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	u, ok := f.s.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for _, u := range f.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakeUsers) AllInTenant(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	for _, id := range userIDs {
		u, ok := f.s.users[id]
		if !ok || u.TenantID != tenantID {
			return false, nil
		}
	}
	return true, nil
}

// --- wiring ---

// recordingPublisher captures what the directory would fan out to live
// socket rooms.
type recordingPublisher struct {
	mu        sync.Mutex
	published []*models.Message
}

var _ RoomPublisher = (*recordingPublisher)(nil)

func (p *recordingPublisher) PublishMessage(channelID uuid.UUID, msg *models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, msg)
}

func (p *recordingPublisher) contents() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.published))
	for _, m := range p.published {
		out = append(out, m.Content)
	}
	return out
}

// fixture assembles the core services over one shared memStore.
type fixture struct {
	store     *memStore
	directory *Directory
	direct    *DirectResolver
	log       *MessageLog
	published *recordingPublisher
}

func newFixture() *fixture {
	store := newMemStore()
	channels := fakeChannels{store}
	memberships := fakeMemberships{store}
	messages := fakeMessages{store}
	users := fakeUsers{store}
	published := &recordingPublisher{}

	logger := zap.NewNop()
	log := NewMessageLog(channels, memberships, users, messages, logger)
	return &fixture{
		store:     store,
		directory: NewDirectory(channels, memberships, users, log, published, logger),
		direct:    NewDirectResolver(channels, users, logger),
		log:       log,
		published: published,
	}
}
