package repository

import (
	"time"

	"github.com/quocanhngo/publicchat/internal/model"
)

// BrowseFilter selects a page of eligible chats
type BrowseFilter struct {
	Now    time.Time
	Topic  string
	Offset int
	Limit  int
}

// MembershipFunc decides a membership change against a consistent snapshot.
// chat carries the joined count at the instant of the decision and member is
// the user's row, with Status MemberStatusNone when none exists yet.
// It mutates member in place and returns the audit entry to append (nil for none).
// Returning an error aborts the change without writing anything.
type MembershipFunc func(chat *model.PublicChat, member *model.PublicChatMember) (*model.UserChatRequest, error)

// StatusFunc returns the next stored status of a locked chat
type StatusFunc func(chat *model.PublicChat) (model.ChatStatus, error)
