package matching

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/model"
)

const (
	// DefaultProfileText stands in for users with no interest data
	DefaultProfileText = "default user"

	maxProfilePosts     = 10
	maxPostSnippetRunes = 50
	maxProfileLocations = 5
)

// InterestProfile is the collapsed scoring input for one user
type InterestProfile struct {
	UserID   uuid.UUID `json:"user_id"`
	Text     string    `json:"text"`
	Location *GeoPoint `json:"location,omitempty"`
}

// ProfileData is the raw interest data a profile is built from.
// Posts and FavoriteLocations are expected newest first.
type ProfileData struct {
	Preferences       []model.UserPreference
	Posts             []model.Post
	FavoriteLocations []model.FavoriteLocation
}

// BuildProfile collapses preferences, recent posts and favorite places
// into one text document plus a representative coordinate
func BuildProfile(userID uuid.UUID, data ProfileData) InterestProfile {
	parts := make([]string, 0, len(data.Preferences)+maxProfilePosts+maxProfileLocations)

	for _, p := range data.Preferences {
		if p.PreferenceType == "" {
			continue
		}
		parts = append(parts, p.PreferenceType+":"+formatFloat(p.Weight))
	}

	for i, post := range data.Posts {
		if i == maxProfilePosts {
			break
		}
		if snippet := truncateRunes(strings.TrimSpace(post.Body), maxPostSnippetRunes); snippet != "" {
			parts = append(parts, snippet)
		}
	}

	var sumLat, sumLng float64
	var located int
	for _, loc := range data.FavoriteLocations {
		if located == maxProfileLocations {
			break
		}
		if loc.Latitude == nil || loc.Longitude == nil {
			continue
		}
		parts = append(parts, "location:"+formatFloat(*loc.Latitude)+","+formatFloat(*loc.Longitude))
		sumLat += *loc.Latitude
		sumLng += *loc.Longitude
		located++
	}

	profile := InterestProfile{UserID: userID, Text: strings.Join(parts, " ")}
	if profile.Text == "" {
		profile.Text = DefaultProfileText
	}
	if located > 0 {
		profile.Location = &GeoPoint{Lat: sumLat / float64(located), Lng: sumLng / float64(located)}
	}
	return profile
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
