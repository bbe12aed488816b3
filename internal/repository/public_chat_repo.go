package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// joinedCountSQL counts Joined members of the chat in the outer query
const joinedCountSQL = "(SELECT COUNT(*) FROM public_chat_members m WHERE m.public_chat_id = public_chats.id AND m.status = 'joined')"

// PublicChatRepository handles database operations for public chats, members and audit rows
type PublicChatRepository struct {
	db *gorm.DB
}

func NewPublicChatRepository(db *gorm.DB) *PublicChatRepository {
	return &PublicChatRepository{db: db}
}

// withJoinedCount selects chat columns plus the computed joined_count
func (r *PublicChatRepository) withJoinedCount(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.PublicChat{}).
		Select("public_chats.*, " + joinedCountSQL + " AS joined_count")
}

// eligible restricts q to public, active, unfinished chats with a free seat
func eligible(q *gorm.DB, now time.Time) *gorm.DB {
	return q.
		Where("public_chats.is_public = ?", true).
		Where("public_chats.status = ?", model.ChatStatusActive).
		Where("public_chats.scheduled_end_time > ?", now).
		Where(joinedCountSQL + " < public_chats.max_members")
}

// FindEligible returns every chat that can currently be recommended
func (r *PublicChatRepository) FindEligible(ctx context.Context, now time.Time) ([]model.PublicChat, error) {
	var chats []model.PublicChat
	err := eligible(r.withJoinedCount(ctx), now).
		Preload("Summary").
		Order("public_chats.created_at ASC, public_chats.id ASC").
		Find(&chats).Error
	return chats, err
}

// Browse returns a page of eligible chats ordered by start time, plus the total
func (r *PublicChatRepository) Browse(ctx context.Context, f BrowseFilter) ([]model.PublicChat, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		q = eligible(q, f.Now)
		if f.Topic != "" {
			q = q.Joins("JOIN public_chat_summaries ON public_chat_summaries.public_chat_id = public_chats.id").
				Where("public_chat_summaries.key_topics ILIKE ?", "%"+f.Topic+"%")
		}
		return q
	}

	var total int64
	if err := scope(r.db.WithContext(ctx).Model(&model.PublicChat{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var chats []model.PublicChat
	err := scope(r.withJoinedCount(ctx)).
		Preload("Summary").
		Order("public_chats.scheduled_date ASC, public_chats.id ASC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&chats).Error
	if err != nil {
		return nil, 0, err
	}
	return chats, total, nil
}

// FindByID finds a chat with its summary and joined count
func (r *PublicChatRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PublicChat, error) {
	var chat model.PublicChat
	err := r.withJoinedCount(ctx).
		Preload("Summary").
		Where("public_chats.id = ?", id).
		First(&chat).Error
	if err != nil {
		return nil, notFound(err, model.ErrChatNotFound)
	}
	return &chat, nil
}

// Create inserts a chat and its creator membership in one transaction
func (r *PublicChatRepository) Create(ctx context.Context, chat *model.PublicChat, creator *model.PublicChatMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(chat).Error; err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		creator.PublicChatID = chat.ID
		if err := tx.Omit(clause.Associations).Create(creator).Error; err != nil {
			return fmt.Errorf("create creator membership: %w", err)
		}
		chat.JoinedCount = 1
		return nil
	})
}

// UpdateMembership applies fn to the user's membership while holding a row
// lock on the chat, so capacity checks see a consistent joined count.
// The member row and the audit row commit together.
func (r *PublicChatRepository) UpdateMembership(ctx context.Context, chatID, userID uuid.UUID, fn MembershipFunc) (*model.PublicChatMember, error) {
	var member model.PublicChatMember

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat model.PublicChat
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", chatID).
			First(&chat).Error; err != nil {
			return notFound(err, model.ErrChatNotFound)
		}

		if err := tx.Model(&model.PublicChatMember{}).
			Where("public_chat_id = ? AND status = ?", chatID, model.MemberStatusJoined).
			Count(&chat.JoinedCount).Error; err != nil {
			return err
		}

		exists := true
		err := tx.Where("public_chat_id = ? AND user_id = ?", chatID, userID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			exists = false
			member = model.PublicChatMember{PublicChatID: chatID, UserID: userID, Status: model.MemberStatusNone}
		} else if err != nil {
			return err
		}

		audit, err := fn(&chat, &member)
		if err != nil {
			return err
		}

		if exists {
			err = tx.Omit(clause.Associations).Save(&member).Error
		} else {
			err = tx.Omit(clause.Associations).Create(&member).Error
		}
		if err != nil {
			return fmt.Errorf("save membership: %w", err)
		}

		if audit != nil {
			if err := tx.Create(audit).Error; err != nil {
				return fmt.Errorf("append audit: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindMember finds the user's membership in a chat
func (r *PublicChatRepository) FindMember(ctx context.Context, chatID, userID uuid.UUID) (*model.PublicChatMember, error) {
	var member model.PublicChatMember
	err := r.db.WithContext(ctx).
		Where("public_chat_id = ? AND user_id = ?", chatID, userID).
		First(&member).Error
	if err != nil {
		return nil, notFound(err, model.ErrMemberNotFound)
	}
	return &member, nil
}

// Reveal stamps revealed_at on a Joined membership exactly once.
// The conditional update is the compare-and-set; no lock is taken.
func (r *PublicChatRepository) Reveal(ctx context.Context, chatID, userID uuid.UUID, now time.Time) (*model.PublicChatMember, error) {
	res := r.db.WithContext(ctx).
		Model(&model.PublicChatMember{}).
		Where("public_chat_id = ? AND user_id = ? AND status = ? AND revealed_at IS NULL",
			chatID, userID, model.MemberStatusJoined).
		Updates(map[string]interface{}{
			"revealed_at":  now,
			"is_anonymous": false,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	member, err := r.FindMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if member.Status != model.MemberStatusJoined {
			return nil, model.ErrMemberNotFound
		}
		return nil, model.ErrAlreadyRevealed
	}
	return member, nil
}

// VisibleMembers returns Joined, non-anonymous members with their users
func (r *PublicChatRepository) VisibleMembers(ctx context.Context, chatID uuid.UUID) ([]model.PublicChatMember, error) {
	var members []model.PublicChatMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("public_chat_id = ? AND status = ? AND is_anonymous = ?", chatID, model.MemberStatusJoined, false).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

// CountActiveForUser counts the user's Joined memberships in chats that are still running
func (r *PublicChatRepository) CountActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.PublicChatMember{}).
		Joins("JOIN public_chats ON public_chats.id = public_chat_members.public_chat_id").
		Where("public_chat_members.user_id = ? AND public_chat_members.status = ?", userID, model.MemberStatusJoined).
		Where("public_chats.status = ? AND public_chats.scheduled_end_time > ?", model.ChatStatusActive, now).
		Count(&count).Error
	return count, err
}

// UpsertSummary creates or replaces the chat's single summary row
func (r *PublicChatRepository) UpsertSummary(ctx context.Context, summary *model.PublicChatSummary) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "public_chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary_text", "key_topics", "generated_at"}),
	}).Create(summary).Error
}

// UpdateStatus applies fn to the locked chat and stores the returned status
func (r *PublicChatRepository) UpdateStatus(ctx context.Context, chatID uuid.UUID, fn StatusFunc) (*model.PublicChat, error) {
	var chat model.PublicChat

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", chatID).
			First(&chat).Error; err != nil {
			return notFound(err, model.ErrChatNotFound)
		}

		next, err := fn(&chat)
		if err != nil {
			return err
		}

		chat.Status = next
		return tx.Model(&chat).Update("status", next).Error
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// JoinedUserIDs returns the users currently Joined to a chat
func (r *PublicChatRepository) JoinedUserIDs(ctx context.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.PublicChatMember{}).
		Where("public_chat_id = ? AND status = ?", chatID, model.MemberStatusJoined).
		Pluck("user_id", &ids).Error
	return ids, err
}

// AuditTrail returns the audit rows of a user in a chat, oldest first
func (r *PublicChatRepository) AuditTrail(ctx context.Context, chatID, userID uuid.UUID) ([]model.UserChatRequest, error) {
	var rows []model.UserChatRequest
	err := r.db.WithContext(ctx).
		Where("public_chat_id = ? AND user_id = ?", chatID, userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// notFound maps gorm's missing-record error to a domain error
func notFound(err, domain error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain
	}
	return err
}
