package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the opaque identity owned by the surrounding application.
// This service only reads it.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username  string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Avatar    string    `json:"avatar" gorm:"size:500;default:''"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPreference is a weighted preference tag
type UserPreference struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	PreferenceType string    `json:"preference_type" gorm:"size:100;not null"`
	Weight         float64   `json:"weight" gorm:"default:0.5"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Post is a feed post; only its body feeds the interest profile
type Post struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	Body      string    `json:"body" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// FavoriteLocation is a place the user saved on the map
type FavoriteLocation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	Name      string    `json:"name" gorm:"size:255"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}
