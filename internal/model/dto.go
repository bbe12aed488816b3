package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Envelope ==========

// Envelope is embedded in every public chat response
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Envelope
	Kind string `json:"kind,omitempty"`
}

// ========== Requests ==========

type CreatePublicChatRequest struct {
	Name             string   `json:"name" binding:"max=120"`
	Description      string   `json:"description"`
	LocationName     string   `json:"location_name" binding:"max=255"`
	Latitude         *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude        *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	ScheduledDate    string   `json:"scheduled_date"`
	ScheduledEndTime string   `json:"scheduled_end_time"`
	IsAnonymous      *bool    `json:"is_anonymous"`
	MaxMembers       *int     `json:"max_members"`
}

type JoinPublicChatRequest struct {
	IsAnonymous *bool `json:"is_anonymous"`
}

type RejectPublicChatRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

type UpsertSummaryRequest struct {
	Summary string   `json:"summary" binding:"required"`
	Topics  []string `json:"topics"`
}

type PageQuery struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit"`
}

type RecommendQuery struct {
	PageQuery
	InterestWeight *float64 `form:"w_interest"`
	LocationWeight *float64 `form:"w_location"`
	TimeWeight     *float64 `form:"w_time"`
}

type BrowseQuery struct {
	PageQuery
	Filter string `form:"filter"`
}

// ========== Responses ==========

// PublicChatItem is the listing shape shared by browse and recommend
type PublicChatItem struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	LocationName     string     `json:"location_name"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	ScheduledDate    time.Time  `json:"scheduled_date"`
	ScheduledEndTime time.Time  `json:"scheduled_end_time"`
	MemberCount      int64      `json:"member_count"`
	MaxMembers       int        `json:"max_members"`
	Summary          string     `json:"summary"`
	CreatorID        *uuid.UUID `json:"creator_id,omitempty"`
	IsAnonymous      *bool      `json:"is_anonymous,omitempty"`
}

// NewPublicChatItem converts a chat into its listing shape
func NewPublicChatItem(c *PublicChat) PublicChatItem {
	return PublicChatItem{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		LocationName:     c.LocationName,
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		ScheduledDate:    c.ScheduledDate,
		ScheduledEndTime: c.ScheduledEndTime,
		MemberCount:      c.JoinedCount,
		MaxMembers:       c.MaxMembers,
		Summary:          c.SummaryText(),
	}
}

type MatchDetails struct {
	Interest float64            `json:"interest"`
	Location float64            `json:"location"`
	Time     float64            `json:"time"`
	Weights  map[string]float64 `json:"weights"`
}

type RecommendedChat struct {
	PublicChatItem
	MatchScore   float64      `json:"match_score"`
	MatchDetails MatchDetails `json:"match_details"`
}

type RecommendResponse struct {
	Envelope
	Page            int               `json:"page"`
	Count           int               `json:"count"`
	Recommendations []RecommendedChat `json:"recommendations"`
}

type BrowseResponse struct {
	Envelope
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int64            `json:"total"`
	Chats []PublicChatItem `json:"chats"`
}

type JoinResponse struct {
	Envelope
	ChatID      uuid.UUID `json:"chat_id"`
	IsAnonymous bool      `json:"is_anonymous"`
}

type RevealResponse struct {
	Envelope
	NowVisibleTo []string `json:"now_visible_to"`
}

type SummaryResponse struct {
	Envelope
	Summary     string    `json:"summary"`
	Topics      []string  `json:"topics"`
	GeneratedAt time.Time `json:"generated_at"`
}

type CreatePublicChatResponse struct {
	Envelope
	ChatID uuid.UUID `json:"chat_id"`
}

type ActiveCountResponse struct {
	Envelope
	ActiveChatCount int64 `json:"active_chat_count"`
	MaxAllowed      int   `json:"max_allowed"`
}

type ChatStatusResponse struct {
	Envelope
	ChatID uuid.UUID  `json:"chat_id"`
	Status ChatStatus `json:"status"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Live room event types
const (
	WSEventMemberJoined     = "member_joined"
	WSEventMemberLeft       = "member_left"
	WSEventIdentityRevealed = "identity_revealed"
	WSEventChatClosed       = "chat_closed"
)

// MemberEventPayload announces a membership change; Username is empty for anonymous members
type MemberEventPayload struct {
	ChatID      uuid.UUID  `json:"chat_id"`
	MemberID    uuid.UUID  `json:"member_id"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	Username    string     `json:"username,omitempty"`
	IsAnonymous bool       `json:"is_anonymous"`
}

type ChatClosedPayload struct {
	ChatID uuid.UUID  `json:"chat_id"`
	Status ChatStatus `json:"status"`
}
