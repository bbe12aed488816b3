package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/matching"
	"github.com/quocanhngo/publicchat/internal/model"
	"gorm.io/gorm"
)

const (
	profilePostLimit     = 10
	profileLocationLimit = 5
)

// ProfileRepository reads the interest data a user's profile is built from
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Profile loads preferences, recent posts and favorite places and collapses them
func (r *ProfileRepository) Profile(ctx context.Context, userID uuid.UUID) (matching.InterestProfile, error) {
	var data matching.ProfileData
	db := r.db.WithContext(ctx)

	if err := db.Where("user_id = ?", userID).
		Order("weight DESC, preference_type ASC").
		Find(&data.Preferences).Error; err != nil {
		return matching.InterestProfile{}, err
	}

	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(profilePostLimit).
		Find(&data.Posts).Error; err != nil {
		return matching.InterestProfile{}, err
	}

	if err := db.Where("user_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", userID).
		Order("created_at DESC").
		Limit(profileLocationLimit).
		Find(&data.FavoriteLocations).Error; err != nil {
		return matching.InterestProfile{}, err
	}

	return matching.BuildProfile(userID, data), nil
}

// AddPreference inserts a preference tag
func (r *ProfileRepository) AddPreference(ctx context.Context, pref *model.UserPreference) error {
	return r.db.WithContext(ctx).Create(pref).Error
}

// AddPost inserts a feed post
func (r *ProfileRepository) AddPost(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// AddFavoriteLocation inserts a saved place
func (r *ProfileRepository) AddFavoriteLocation(ctx context.Context, loc *model.FavoriteLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}
