package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChatStatus is the stored lifecycle status of a public chat
type ChatStatus string

const (
	ChatStatusActive    ChatStatus = "active"
	ChatStatusEnded     ChatStatus = "ended"
	ChatStatusCancelled ChatStatus = "cancelled"
)

// MemberStatus is a user's participation status in one public chat
type MemberStatus string

const (
	MemberStatusNone     MemberStatus = ""
	MemberStatusPending  MemberStatus = "pending"
	MemberStatusJoined   MemberStatus = "joined"
	MemberStatusRejected MemberStatus = "rejected"
	MemberStatusLeft     MemberStatus = "left"
)

// ChatAction is the action recorded in the audit log
type ChatAction string

const (
	ChatActionJoined   ChatAction = "joined"
	ChatActionRejected ChatAction = "rejected"
	ChatActionLeft     ChatAction = "left"
)

// PublicChat is a capacity-bounded, time-windowed group chat discoverable by strangers
type PublicChat struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"size:120;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatorID   uuid.UUID `json:"creator_id" gorm:"type:uuid;index;not null"`

	IsPublic    bool `json:"is_public" gorm:"not null"`
	IsAnonymous bool `json:"is_anonymous" gorm:"not null"` // default anonymity for joiners

	LocationName string   `json:"location_name,omitempty" gorm:"size:255"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`

	ScheduledDate    time.Time  `json:"scheduled_date" gorm:"not null;index"`
	ScheduledEndTime time.Time  `json:"scheduled_end_time" gorm:"not null;index"`
	Status           ChatStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	MaxMembers       int        `json:"max_members" gorm:"default:5"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// JoinedCount is computed by the store on read
	JoinedCount int64 `json:"member_count" gorm:"->;-:migration"`

	// Relations
	Summary *PublicChatSummary `json:"summary,omitempty" gorm:"foreignKey:PublicChatID"`
	Members []PublicChatMember `json:"-" gorm:"foreignKey:PublicChatID"`
}

// IsEnded reports whether the chat no longer accepts participants.
// Stored status stays active past the end time, so the time check is always applied.
func (c *PublicChat) IsEnded(now time.Time) bool {
	return c.Status != ChatStatusActive || now.After(c.ScheduledEndTime)
}

// EffectiveStatus derives the status readers should see at now
func (c *PublicChat) EffectiveStatus(now time.Time) ChatStatus {
	if c.Status == ChatStatusActive && now.After(c.ScheduledEndTime) {
		return ChatStatusEnded
	}
	return c.Status
}

// IsFull reports whether joined members reached capacity
func (c *PublicChat) IsFull() bool {
	return c.JoinedCount >= int64(c.MaxMembers)
}

// IsEligible reports whether the chat may be recommended or browsed at now
func (c *PublicChat) IsEligible(now time.Time) bool {
	return c.IsPublic && !c.IsEnded(now) && !c.IsFull()
}

// HasLocation reports whether the chat is geo-anchored
func (c *PublicChat) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// SummaryText returns the match target text, empty when there is no summary
func (c *PublicChat) SummaryText() string {
	if c.Summary == nil {
		return ""
	}
	return c.Summary.SummaryText
}

// PublicChatSummary is the curated text and topic list used as the match target
type PublicChatSummary struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PublicChatID uuid.UUID `json:"public_chat_id" gorm:"type:uuid;uniqueIndex;not null"`
	SummaryText  string    `json:"summary_text" gorm:"type:text"`
	KeyTopics    string    `json:"key_topics" gorm:"size:500"` // comma separated
	GeneratedAt  time.Time `json:"generated_at"`
}

// Topics splits KeyTopics into trimmed, non-empty topics
func (s *PublicChatSummary) Topics() []string {
	topics := []string{}
	if s == nil || s.KeyTopics == "" {
		return topics
	}
	for _, t := range strings.Split(s.KeyTopics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// PublicChatMember is one user's participation record in one public chat.
// Rows are reused across status changes and never deleted.
type PublicChatMember struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PublicChatID uuid.UUID    `json:"public_chat_id" gorm:"type:uuid;uniqueIndex:idx_public_chat_user;not null"`
	UserID       uuid.UUID    `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_public_chat_user;not null"`
	IsAnonymous  bool         `json:"is_anonymous" gorm:"not null"`
	Status       MemberStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	JoinedAt     *time.Time   `json:"joined_at,omitempty"`
	RevealedAt   *time.Time   `json:"revealed_at,omitempty"`

	// Relations
	User User `json:"-" gorm:"foreignKey:UserID"`
}

// IsRevealed reports whether the member has given up anonymity
func (m *PublicChatMember) IsRevealed() bool {
	return m.RevealedAt != nil
}

// UserChatRequest is an append-only audit entry for join/reject/leave actions
type UserChatRequest struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID         `json:"user_id" gorm:"type:uuid;index;not null"`
	PublicChatID uuid.UUID         `json:"public_chat_id" gorm:"type:uuid;index;not null"`
	Action       ChatAction        `json:"action" gorm:"type:varchar(20);not null"`
	Reason       string            `json:"reason,omitempty" gorm:"size:255"`
	Context      datatypes.JSONMap `json:"context,omitempty" gorm:"type:jsonb"`
	CreatedAt    time.Time         `json:"created_at"`
}
