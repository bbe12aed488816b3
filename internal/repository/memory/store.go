// Package memory is an in-process store used for local development and tests.
// It satisfies the same contracts as the gorm repositories.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/internal/repository"
)

// ErrUserNotFound is returned for unknown user ids
var ErrUserNotFound = errors.New("user not found")

type memberKey struct {
	chatID uuid.UUID
	userID uuid.UUID
}

// Store keeps all public chat state behind a single mutex
type Store struct {
	mu sync.RWMutex

	chats     map[uuid.UUID]*model.PublicChat
	chatOrder []uuid.UUID
	summaries map[uuid.UUID]*model.PublicChatSummary
	members   map[memberKey]*model.PublicChatMember
	audit     []model.UserChatRequest

	users     map[uuid.UUID]*model.User
	prefs     map[uuid.UUID][]model.UserPreference
	posts     map[uuid.UUID][]model.Post
	locations map[uuid.UUID][]model.FavoriteLocation
}

func NewStore() *Store {
	return &Store{
		chats:     make(map[uuid.UUID]*model.PublicChat),
		summaries: make(map[uuid.UUID]*model.PublicChatSummary),
		members:   make(map[memberKey]*model.PublicChatMember),
		users:     make(map[uuid.UUID]*model.User),
		prefs:     make(map[uuid.UUID][]model.UserPreference),
		posts:     make(map[uuid.UUID][]model.Post),
		locations: make(map[uuid.UUID][]model.FavoriteLocation),
	}
}

// ========== Chats ==========

// joinedCount must be called with mu held
func (s *Store) joinedCount(chatID uuid.UUID) int64 {
	var n int64
	for k, m := range s.members {
		if k.chatID == chatID && m.Status == model.MemberStatusJoined {
			n++
		}
	}
	return n
}

// snapshot copies a chat with its computed fields; mu must be held
func (s *Store) snapshot(c *model.PublicChat) model.PublicChat {
	chat := *c
	chat.Members = nil
	chat.JoinedCount = s.joinedCount(c.ID)
	if sum, ok := s.summaries[c.ID]; ok {
		cp := *sum
		chat.Summary = &cp
	} else {
		chat.Summary = nil
	}
	return chat
}

func (s *Store) FindEligible(ctx context.Context, now time.Time) ([]model.PublicChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := []model.PublicChat{}
	for _, id := range s.chatOrder {
		chat := s.snapshot(s.chats[id])
		if chat.IsEligible(now) {
			chats = append(chats, chat)
		}
	}
	return chats, nil
}

func (s *Store) Browse(ctx context.Context, f repository.BrowseFilter) ([]model.PublicChat, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic := strings.ToLower(f.Topic)
	matched := []model.PublicChat{}
	for _, id := range s.chatOrder {
		chat := s.snapshot(s.chats[id])
		if !chat.IsEligible(f.Now) {
			continue
		}
		if topic != "" && (chat.Summary == nil || !strings.Contains(strings.ToLower(chat.Summary.KeyTopics), topic)) {
			continue
		}
		matched = append(matched, chat)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ScheduledDate.Before(matched[j].ScheduledDate)
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []model.PublicChat{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*model.PublicChat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[id]
	if !ok {
		return nil, model.ErrChatNotFound
	}
	chat := s.snapshot(c)
	return &chat, nil
}

func (s *Store) Create(ctx context.Context, chat *model.PublicChat, creator *model.PublicChatMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	chat.CreatedAt, chat.UpdatedAt = now, now

	stored := *chat
	stored.Summary, stored.Members = nil, nil
	s.chats[chat.ID] = &stored
	s.chatOrder = append(s.chatOrder, chat.ID)

	if chat.Summary != nil {
		sum := *chat.Summary
		if sum.ID == uuid.Nil {
			sum.ID = uuid.New()
		}
		sum.PublicChatID = chat.ID
		s.summaries[chat.ID] = &sum
	}

	if creator != nil {
		creator.PublicChatID = chat.ID
		if creator.ID == uuid.Nil {
			creator.ID = uuid.New()
		}
		m := *creator
		m.User = model.User{}
		s.members[memberKey{chat.ID, creator.UserID}] = &m
	}
	chat.JoinedCount = s.joinedCount(chat.ID)
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, chatID uuid.UUID, fn repository.StatusFunc) (*model.PublicChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, model.ErrChatNotFound
	}
	chat := s.snapshot(c)
	next, err := fn(&chat)
	if err != nil {
		return nil, err
	}
	c.Status = next
	c.UpdatedAt = time.Now()
	chat.Status = next
	return &chat, nil
}

func (s *Store) UpsertSummary(ctx context.Context, summary *model.PublicChatSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[summary.PublicChatID]; !ok {
		return model.ErrChatNotFound
	}
	if existing, ok := s.summaries[summary.PublicChatID]; ok {
		summary.ID = existing.ID
	} else if summary.ID == uuid.Nil {
		summary.ID = uuid.New()
	}
	cp := *summary
	s.summaries[summary.PublicChatID] = &cp
	return nil
}

// ========== Membership ==========

// UpdateMembership runs fn and commits its result under the store lock
func (s *Store) UpdateMembership(ctx context.Context, chatID, userID uuid.UUID, fn repository.MembershipFunc) (*model.PublicChatMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, model.ErrChatNotFound
	}
	chat := s.snapshot(c)

	key := memberKey{chatID, userID}
	member := model.PublicChatMember{PublicChatID: chatID, UserID: userID, Status: model.MemberStatusNone}
	if existing, ok := s.members[key]; ok {
		member = *existing
	}

	audit, err := fn(&chat, &member)
	if err != nil {
		return nil, err
	}

	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	stored := member
	s.members[key] = &stored

	if audit != nil {
		if audit.ID == uuid.Nil {
			audit.ID = uuid.New()
		}
		if audit.CreatedAt.IsZero() {
			audit.CreatedAt = time.Now()
		}
		s.audit = append(s.audit, *audit)
	}
	return &member, nil
}

func (s *Store) FindMember(ctx context.Context, chatID, userID uuid.UUID) (*model.PublicChatMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[memberKey{chatID, userID}]
	if !ok {
		return nil, model.ErrMemberNotFound
	}
	member := *m
	return &member, nil
}

// Reveal is a compare-and-set on RevealedAt
func (s *Store) Reveal(ctx context.Context, chatID, userID uuid.UUID, now time.Time) (*model.PublicChatMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[memberKey{chatID, userID}]
	if !ok || m.Status != model.MemberStatusJoined {
		return nil, model.ErrMemberNotFound
	}
	if m.RevealedAt != nil {
		return nil, model.ErrAlreadyRevealed
	}
	at := now
	m.RevealedAt = &at
	m.IsAnonymous = false
	member := *m
	return &member, nil
}

func (s *Store) VisibleMembers(ctx context.Context, chatID uuid.UUID) ([]model.PublicChatMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := []model.PublicChatMember{}
	for k, m := range s.members {
		if k.chatID != chatID || m.Status != model.MemberStatusJoined || m.IsAnonymous {
			continue
		}
		member := *m
		if u, ok := s.users[m.UserID]; ok {
			member.User = *u
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		return joinedBefore(members[i], members[j])
	})
	return members, nil
}

func joinedBefore(a, b model.PublicChatMember) bool {
	switch {
	case a.JoinedAt == nil:
		return b.JoinedAt != nil
	case b.JoinedAt == nil:
		return false
	case !a.JoinedAt.Equal(*b.JoinedAt):
		return a.JoinedAt.Before(*b.JoinedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (s *Store) CountActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for k, m := range s.members {
		if k.userID != userID || m.Status != model.MemberStatusJoined {
			continue
		}
		c := s.chats[k.chatID]
		if c.Status == model.ChatStatusActive && c.ScheduledEndTime.After(now) {
			n++
		}
	}
	return n, nil
}

func (s *Store) JoinedUserIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []uuid.UUID{}
	for k, m := range s.members {
		if k.chatID == chatID && m.Status == model.MemberStatusJoined {
			ids = append(ids, k.userID)
		}
	}
	return ids, nil
}

func (s *Store) AuditTrail(ctx context.Context, chatID, userID uuid.UUID) ([]model.UserChatRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := []model.UserChatRequest{}
	for _, a := range s.audit {
		if a.PublicChatID == chatID && a.UserID == userID {
			rows = append(rows, a)
		}
	}
	return rows, nil
}

// AuditLen returns the number of audit rows across all chats
func (s *Store) AuditLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.audit)
}

// ========== Users & profiles ==========

// AddUser stores a user, assigning an ID when missing
func (s *Store) AddUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

// Users exposes the user table with the same shape as repository.UserRepository
func (s *Store) Users() *Users {
	return &Users{s: s}
}

// Users is a read view over the store's users
type Users struct {
	s *Store
}

func (u *Users) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	found, ok := u.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := *found
	return &user, nil
}

func (s *Store) AddPreference(ctx context.Context, pref *model.UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	s.prefs[pref.UserID] = append(s.prefs[pref.UserID], *pref)
	return nil
}

// AddPost records a post; later posts are treated as more recent
func (s *Store) AddPost(ctx context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	s.posts[post.UserID] = append([]model.Post{*post}, s.posts[post.UserID]...)
	return nil
}

// AddFavoriteLocation records a saved place; later places are treated as more recent
func (s *Store) AddFavoriteLocation(ctx context.Context, loc *model.FavoriteLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	s.locations[loc.UserID] = append([]model.FavoriteLocation{*loc}, s.locations[loc.UserID]...)
	return nil
}

// Profile builds the user's interest profile
func (s *Store) Profile(ctx context.Context, userID uuid.UUID) (matching.InterestProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return matching.BuildProfile(userID, matching.ProfileData{
		Preferences:       s.prefs[userID],
		Posts:             s.posts[userID],
		FavoriteLocations: s.locations[userID],
	}), nil
}
