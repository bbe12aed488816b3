package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/internal/repository"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"github.com/quocanhngo/publicchat/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ChatStore persists public chats, memberships and the audit log.
// UpdateMembership and UpdateStatus must apply their callbacks atomically.
type ChatStore interface {
	FindEligible(ctx context.Context, now time.Time) ([]model.PublicChat, error)
	Browse(ctx context.Context, f repository.BrowseFilter) ([]model.PublicChat, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.PublicChat, error)
	Create(ctx context.Context, chat *model.PublicChat, creator *model.PublicChatMember) error
	UpdateMembership(ctx context.Context, chatID, userID uuid.UUID, fn repository.MembershipFunc) (*model.PublicChatMember, error)
	FindMember(ctx context.Context, chatID, userID uuid.UUID) (*model.PublicChatMember, error)
	Reveal(ctx context.Context, chatID, userID uuid.UUID, now time.Time) (*model.PublicChatMember, error)
	VisibleMembers(ctx context.Context, chatID uuid.UUID) ([]model.PublicChatMember, error)
	CountActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	UpsertSummary(ctx context.Context, summary *model.PublicChatSummary) error
	UpdateStatus(ctx context.Context, chatID uuid.UUID, fn repository.StatusFunc) (*model.PublicChat, error)
}

// ProfileSource builds a user's interest profile
type ProfileSource interface {
	Profile(ctx context.Context, userID uuid.UUID) (matching.InterestProfile, error)
}

// UserReader resolves usernames for revealed members
type UserReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// EventPublisher fans out live room events to connected members
type EventPublisher interface {
	PublishToRoom(chatID uuid.UUID, event *model.WSEvent)
}

// Options tunes the service; zero values fall back to defaults
type Options struct {
	DefaultMaxMembers int
	DefaultDuration   time.Duration
	MaxActivePerUser  int
	EnforceActiveCap  bool
	RecommendLimit    int
	BrowseLimit       int
	MaxPageLimit      int
}

func (o Options) withDefaults() Options {
	if o.DefaultMaxMembers <= 0 {
		o.DefaultMaxMembers = 5
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 2 * time.Hour
	}
	if o.MaxActivePerUser <= 0 {
		o.MaxActivePerUser = 5
	}
	if o.RecommendLimit <= 0 {
		o.RecommendLimit = 5
	}
	if o.BrowseLimit <= 0 {
		o.BrowseLimit = 10
	}
	if o.MaxPageLimit <= 0 {
		o.MaxPageLimit = 50
	}
	return o
}

const maxMembersCeiling = 100

// MatchmakingService orchestrates recommendation, browsing and the public chat lifecycle
type MatchmakingService struct {
	chats    ChatStore
	profiles ProfileSource
	users    UserReader
	scorer   *matching.Scorer
	events   EventPublisher
	opts     Options
	log      *logger.Logger
	now      func() time.Time
}

func NewMatchmakingService(
	chats ChatStore,
	profiles ProfileSource,
	users UserReader,
	scorer *matching.Scorer,
	events EventPublisher,
	opts Options,
	log *logger.Logger,
) *MatchmakingService {
	return &MatchmakingService{
		chats:    chats,
		profiles: profiles,
		users:    users,
		scorer:   scorer,
		events:   events,
		opts:     opts.withDefaults(),
		log:      log.Named("matchmaking"),
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (s *MatchmakingService) SetClock(now func() time.Time) {
	s.now = now
}

// MaxActivePerUser is the advertised per-user active chat limit
func (s *MatchmakingService) MaxActivePerUser() int {
	return s.opts.MaxActivePerUser
}

// ==================== Discovery ====================

// RecommendPage is one page of the globally ranked eligible set
type RecommendPage struct {
	Page  int
	Limit int
	Total int
	Items []matching.Ranked
}

// Recommend ranks every eligible chat for the user and returns the requested page.
// Zero weights select the scorer defaults.
func (s *MatchmakingService) Recommend(ctx context.Context, userID uuid.UUID, page, limit int, weights matching.Weights) (*RecommendPage, error) {
	if !weights.IsZero() {
		if err := weights.Validate(); err != nil {
			return nil, err
		}
	}
	page, limit = s.normalizePage(page, limit, s.opts.RecommendLimit)
	now := s.now()

	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load interest profile: %w", err)
	}

	chats, err := s.chats.FindEligible(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("load eligible chats: %w", err)
	}

	candidates := make([]*model.PublicChat, len(chats))
	for i := range chats {
		candidates[i] = &chats[i]
	}

	ranked, err := s.scorer.Rank(ctx, matching.RankRequest{
		Profile: profile,
		Chats:   candidates,
		Now:     now,
		Weights: weights,
	})
	if err != nil {
		return nil, err
	}

	result := &RecommendPage{Page: page, Limit: limit, Total: len(ranked), Items: []matching.Ranked{}}
	if offset := (page - 1) * limit; offset < len(ranked) {
		end := min(offset+limit, len(ranked))
		result.Items = ranked[offset:end]
	}
	return result, nil
}

// BrowsePage is one page of the unranked eligible listing
type BrowsePage struct {
	Page  int
	Limit int
	Total int64
	Chats []model.PublicChat
}

// Browse lists eligible chats without scoring, optionally filtered by summary topic
func (s *MatchmakingService) Browse(ctx context.Context, page, limit int, topic string) (*BrowsePage, error) {
	page, limit = s.normalizePage(page, limit, s.opts.BrowseLimit)

	chats, total, err := s.chats.Browse(ctx, repository.BrowseFilter{
		Now:    s.now(),
		Topic:  strings.TrimSpace(topic),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("browse chats: %w", err)
	}
	return &BrowsePage{Page: page, Limit: limit, Total: total, Chats: chats}, nil
}

func (s *MatchmakingService) normalizePage(page, limit, fallback int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > s.opts.MaxPageLimit {
		limit = s.opts.MaxPageLimit
	}
	return page, limit
}

// ==================== Create ====================

// CreateChatInput holds the fields of a new public chat.
// A zero ScheduledEndTime defaults to ScheduledDate plus the default duration.
type CreateChatInput struct {
	Name             string
	Description      string
	LocationName     string
	Latitude         *float64
	Longitude        *float64
	ScheduledDate    time.Time
	ScheduledEndTime time.Time
	IsAnonymous      *bool
	MaxMembers       *int
}

// Create inserts a public chat with the creator as a Joined, visible member
func (s *MatchmakingService) Create(ctx context.Context, creatorID uuid.UUID, in CreateChatInput) (*model.PublicChat, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.ScheduledDate.IsZero() {
		return nil, model.Validationf("missing required fields: name and scheduled_date")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return nil, model.Validationf("latitude and longitude must be given together")
	}

	end := in.ScheduledEndTime
	if end.IsZero() {
		end = in.ScheduledDate.Add(s.opts.DefaultDuration)
	}
	if !end.After(in.ScheduledDate) {
		return nil, model.Validationf("scheduled_end_time must be after scheduled_date")
	}
	now := s.now()
	if !end.After(now) {
		return nil, model.Validationf("scheduled_end_time must be in the future")
	}

	maxMembers := s.opts.DefaultMaxMembers
	if in.MaxMembers != nil {
		maxMembers = *in.MaxMembers
	}
	if maxMembers < 2 || maxMembers > maxMembersCeiling {
		return nil, model.Validationf("max_members must be between 2 and %d", maxMembersCeiling)
	}

	anonymous := true
	if in.IsAnonymous != nil {
		anonymous = *in.IsAnonymous
	}

	chat := &model.PublicChat{
		Name:             name,
		Description:      strings.TrimSpace(in.Description),
		CreatorID:        creatorID,
		IsPublic:         true,
		IsAnonymous:      anonymous,
		LocationName:     strings.TrimSpace(in.LocationName),
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		ScheduledDate:    in.ScheduledDate,
		ScheduledEndTime: end,
		Status:           model.ChatStatusActive,
		MaxMembers:       maxMembers,
	}
	creator := &model.PublicChatMember{
		UserID:      creatorID,
		IsAnonymous: false,
		Status:      model.MemberStatusJoined,
		JoinedAt:    &now,
	}

	if err := s.chats.Create(ctx, chat, creator); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	metrics.ChatsCreated.Inc()
	s.log.Info("public chat created",
		zap.String("chat_id", chat.ID.String()),
		zap.String("creator_id", creatorID.String()),
		zap.Time("scheduled_date", chat.ScheduledDate),
	)
	return chat, nil
}

// ==================== Membership lifecycle ====================

// Join adds the user as a Joined member. A nil anonymous takes the chat's default.
// Availability, capacity and the current membership are checked against the
// store's locked snapshot, so concurrent joins never exceed MaxMembers.
func (s *MatchmakingService) Join(ctx context.Context, userID, chatID uuid.UUID, anonymous *bool) (*model.PublicChatMember, error) {
	now := s.now()

	if s.opts.EnforceActiveCap {
		if err := s.checkActiveCap(ctx, userID, chatID, now); err != nil {
			s.recordLifecycle(model.MemberEventJoin, err)
			return nil, err
		}
	}

	member, err := s.chats.UpdateMembership(ctx, chatID, userID, func(chat *model.PublicChat, m *model.PublicChatMember) (*model.UserChatRequest, error) {
		if !chat.IsPublic || chat.IsEnded(now) {
			return nil, model.ErrChatNotAvailable
		}
		if chat.IsFull() {
			return nil, model.ErrChatFull
		}
		next, err := model.TransitionMember(m.Status, model.MemberEventJoin)
		if err != nil {
			return nil, err
		}

		anon := chat.IsAnonymous
		if anonymous != nil {
			anon = *anonymous
		}
		// a revealed identity stays revealed across re-joins
		if m.IsRevealed() {
			anon = false
		}

		m.Status = next
		m.IsAnonymous = anon
		m.JoinedAt = &now

		return s.auditEntry(m, model.MemberEventJoin, "", datatypes.JSONMap{
			"is_anonymous": anon,
			"joined_count": chat.JoinedCount + 1,
			"max_members":  chat.MaxMembers,
		}, now), nil
	})
	s.recordLifecycle(model.MemberEventJoin, err)
	if err != nil {
		return nil, err
	}

	s.log.Info("member joined public chat",
		zap.String("chat_id", chatID.String()),
		zap.String("user_id", userID.String()),
		zap.Bool("anonymous", member.IsAnonymous),
	)
	s.publishMember(ctx, model.WSEventMemberJoined, member)
	return member, nil
}

func (s *MatchmakingService) checkActiveCap(ctx context.Context, userID, chatID uuid.UUID, now time.Time) error {
	existing, err := s.chats.FindMember(ctx, chatID, userID)
	if err == nil && existing.Status == model.MemberStatusJoined {
		return model.ErrAlreadyJoined
	}
	if err != nil && !errors.Is(err, model.ErrMemberNotFound) {
		return err
	}

	count, err := s.chats.CountActiveForUser(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("count active chats: %w", err)
	}
	if count >= int64(s.opts.MaxActivePerUser) {
		return model.ErrActiveLimitReached
	}
	return nil
}

// Reject records that the user declined the chat. It is always allowed: ended chats
// may be rejected, and a Joined member who rejects gives up their seat.
func (s *MatchmakingService) Reject(ctx context.Context, userID, chatID uuid.UUID, reason string) (*model.PublicChatMember, error) {
	now := s.now()
	reason = strings.TrimSpace(reason)

	wasJoined := false
	member, err := s.chats.UpdateMembership(ctx, chatID, userID, func(chat *model.PublicChat, m *model.PublicChatMember) (*model.UserChatRequest, error) {
		previous := m.Status
		next, err := model.TransitionMember(previous, model.MemberEventReject)
		if err != nil {
			return nil, err
		}
		m.Status = next
		wasJoined = previous == model.MemberStatusJoined

		return s.auditEntry(m, model.MemberEventReject, reason, datatypes.JSONMap{
			"previous_status": string(previous),
		}, now), nil
	})
	s.recordLifecycle(model.MemberEventReject, err)
	if err != nil {
		return nil, err
	}

	if wasJoined {
		s.publishMember(ctx, model.WSEventMemberLeft, member)
	}
	return member, nil
}

// Leave moves a Joined member to Left
func (s *MatchmakingService) Leave(ctx context.Context, userID, chatID uuid.UUID) (*model.PublicChatMember, error) {
	now := s.now()

	member, err := s.chats.UpdateMembership(ctx, chatID, userID, func(chat *model.PublicChat, m *model.PublicChatMember) (*model.UserChatRequest, error) {
		next, err := model.TransitionMember(m.Status, model.MemberEventLeave)
		if err != nil {
			return nil, err
		}
		m.Status = next
		return s.auditEntry(m, model.MemberEventLeave, "", nil, now), nil
	})
	s.recordLifecycle(model.MemberEventLeave, err)
	if err != nil {
		return nil, err
	}

	s.publishMember(ctx, model.WSEventMemberLeft, member)
	return member, nil
}

func (s *MatchmakingService) auditEntry(m *model.PublicChatMember, event model.MemberEvent, reason string, details datatypes.JSONMap, now time.Time) *model.UserChatRequest {
	action, _ := model.ActionFor(event)
	return &model.UserChatRequest{
		UserID:       m.UserID,
		PublicChatID: m.PublicChatID,
		Action:       action,
		Reason:       reason,
		Context:      details,
		CreatedAt:    now,
	}
}

// ==================== Reveal ====================

// Reveal makes the user's identity visible to the room, once.
// It returns the usernames of every visible Joined member, the caller included.
func (s *MatchmakingService) Reveal(ctx context.Context, userID, chatID uuid.UUID) ([]string, error) {
	if _, err := s.chats.FindByID(ctx, chatID); err != nil {
		return nil, err
	}

	member, err := s.chats.Reveal(ctx, chatID, userID, s.now())
	metrics.RecordLifecycle("reveal", outcome(err))
	if err != nil {
		return nil, err
	}

	visible, err := s.chats.VisibleMembers(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load visible members: %w", err)
	}
	names := make([]string, 0, len(visible))
	for _, m := range visible {
		names = append(names, m.User.Username)
	}

	s.log.Info("member revealed identity",
		zap.String("chat_id", chatID.String()),
		zap.String("user_id", userID.String()),
	)
	s.publishMember(ctx, model.WSEventIdentityRevealed, member)
	return names, nil
}

// ==================== Summary ====================

// Summary returns the curated summary of a chat
func (s *MatchmakingService) Summary(ctx context.Context, chatID uuid.UUID) (*model.PublicChatSummary, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Summary == nil {
		return nil, model.ErrSummaryNotFound
	}
	return chat.Summary, nil
}

// UpsertSummary replaces the chat's summary and topics; creator only
func (s *MatchmakingService) UpsertSummary(ctx context.Context, userID, chatID uuid.UUID, text string, topics []string) (*model.PublicChatSummary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.Validationf("summary must not be empty")
	}

	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.CreatorID != userID {
		return nil, model.ErrNotCreator
	}

	summary := &model.PublicChatSummary{
		PublicChatID: chatID,
		SummaryText:  text,
		KeyTopics:    joinTopics(topics),
		GeneratedAt:  s.now(),
	}
	if err := s.chats.UpsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	return summary, nil
}

// joinTopics stores topics comma separated, dropping blanks and embedded commas
func joinTopics(topics []string) string {
	cleaned := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ", ")
}

// ==================== Chat status ====================

// End closes an active chat; creator only
func (s *MatchmakingService) End(ctx context.Context, userID, chatID uuid.UUID) (*model.PublicChat, error) {
	return s.transitionChat(ctx, userID, chatID, model.ChatEventEnd)
}

// Cancel calls off an active chat; creator only
func (s *MatchmakingService) Cancel(ctx context.Context, userID, chatID uuid.UUID) (*model.PublicChat, error) {
	return s.transitionChat(ctx, userID, chatID, model.ChatEventCancel)
}

func (s *MatchmakingService) transitionChat(ctx context.Context, userID, chatID uuid.UUID, event model.ChatEvent) (*model.PublicChat, error) {
	chat, err := s.chats.UpdateStatus(ctx, chatID, func(chat *model.PublicChat) (model.ChatStatus, error) {
		if chat.CreatorID != userID {
			return chat.Status, model.ErrNotCreator
		}
		return model.TransitionChat(chat.Status, event)
	})
	metrics.RecordLifecycle(string(event), outcome(err))
	if err != nil {
		return nil, err
	}

	s.log.Info("public chat closed",
		zap.String("chat_id", chatID.String()),
		zap.String("status", string(chat.Status)),
	)
	s.publish(chatID, &model.WSEvent{
		Type:    model.WSEventChatClosed,
		Payload: model.ChatClosedPayload{ChatID: chatID, Status: chat.Status},
	})
	return chat, nil
}

// ==================== Queries ====================

// ActiveCount returns the user's Joined memberships in running chats
func (s *MatchmakingService) ActiveCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.chats.CountActiveForUser(ctx, userID, s.now())
}

// IsJoinedMember reports whether the user is currently Joined to the chat
func (s *MatchmakingService) IsJoinedMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	m, err := s.chats.FindMember(ctx, chatID, userID)
	if errors.Is(err, model.ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Status == model.MemberStatusJoined, nil
}

// ==================== Events ====================

func (s *MatchmakingService) publishMember(ctx context.Context, eventType string, m *model.PublicChatMember) {
	payload := model.MemberEventPayload{
		ChatID:      m.PublicChatID,
		MemberID:    m.ID,
		IsAnonymous: m.IsAnonymous,
	}
	if !m.IsAnonymous {
		userID := m.UserID
		payload.UserID = &userID
		if s.users != nil {
			if u, err := s.users.FindByID(ctx, m.UserID); err == nil {
				payload.Username = u.Username
			}
		}
	}
	s.publish(m.PublicChatID, &model.WSEvent{Type: eventType, Payload: payload})
}

func (s *MatchmakingService) publish(chatID uuid.UUID, event *model.WSEvent) {
	if s.events == nil {
		return
	}
	s.events.PublishToRoom(chatID, event)
}

func (s *MatchmakingService) recordLifecycle(event model.MemberEvent, err error) {
	metrics.RecordLifecycle(string(event), outcome(err))
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return model.KindOf(err).String()
}
