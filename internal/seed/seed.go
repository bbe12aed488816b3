// Package seed loads a small demo dataset for local development.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/internal/service"
)

// Writer stores users and the signals their interest profiles are built from
type Writer interface {
	AddUser(ctx context.Context, user *model.User) error
	AddPreference(ctx context.Context, pref *model.UserPreference) error
	AddPost(ctx context.Context, post *model.Post) error
	AddFavoriteLocation(ctx context.Context, loc *model.FavoriteLocation) error
}

type place struct {
	name     string
	lat, lng float64
}

var (
	hoanKiem = place{"Hoan Kiem Lake", 21.0285, 105.8542}
	westLake = place{"West Lake", 21.0580, 105.8190}
	baVi     = place{"Ba Vi National Park", 21.0733, 105.3740}
	saigon   = place{"District 1, Saigon", 10.7769, 106.7009}
)

type demoUser struct {
	username string
	prefs    map[string]float64
	posts    []string
	places   []place
}

var demoUsers = []demoUser{
	{
		username: "linh",
		prefs:    map[string]float64{"coffee": 0.7, "community": 0.9},
		posts:    []string{"Hosting small meetups around the old quarter every week"},
		places:   []place{hoanKiem},
	},
	{
		username: "alice",
		prefs:    map[string]float64{"coffee": 0.9, "books": 0.8},
		posts: []string{
			"Found a new egg coffee spot near the lake",
			"Reading club picks for next month, mostly sci-fi",
		},
		places: []place{hoanKiem, westLake},
	},
	{
		username: "bao",
		prefs:    map[string]float64{"hiking": 0.9, "photography": 0.7},
		posts:    []string{"Sunrise hike with the camera, misty and worth it"},
		places:   []place{baVi},
	},
	{
		username: "chi",
		prefs:    map[string]float64{"boardgames": 0.8, "coffee": 0.5},
		posts:    []string{"Looking for people to play strategy board games"},
		places:   []place{westLake},
	},
	{
		username: "duc",
		prefs:    map[string]float64{"jazz": 0.9, "music": 0.8},
		posts:    []string{"Live jazz tonight was unreal"},
	},
	{
		username: "mai",
		prefs:    map[string]float64{"remote work": 0.8, "coffee": 0.6},
		posts:    []string{"Any good laptop friendly cafes in district one?"},
		places:   []place{saigon},
	},
}

type demoChat struct {
	name        string
	description string
	at          *place
	startIn     time.Duration
	maxMembers  int
	summary     string
	topics      []string
}

var demoChats = []demoChat{
	{
		name:        "Coffee Night",
		description: "Casual evening coffee with strangers",
		at:          &hoanKiem,
		startIn:     3 * time.Hour,
		maxMembers:  5,
		summary:     "Coffee lovers meetup to try egg coffee and trade book recommendations",
		topics:      []string{"coffee", "books"},
	},
	{
		name:        "Board Game Evening",
		description: "Bring a game or learn a new one",
		at:          &westLake,
		startIn:     6 * time.Hour,
		maxMembers:  6,
		summary:     "Strategy board games and snacks by the lake",
		topics:      []string{"boardgames", "strategy"},
	},
	{
		name:        "Sunrise Hike",
		description: "Early trail walk, cameras welcome",
		at:          &baVi,
		startIn:     26 * time.Hour,
		maxMembers:  8,
		summary:     "Hiking the summit trail at sunrise with photography stops",
		topics:      []string{"hiking", "photography"},
	},
	{
		name:        "Jazz Listening Session",
		description: "Online session sharing favourite records",
		startIn:     50 * time.Hour,
		maxMembers:  10,
		summary:     "Jazz music listening and live recordings",
		topics:      []string{"jazz", "music"},
	},
	{
		name:        "Remote Workers Meetup",
		description: "Cowork for an afternoon",
		at:          &saigon,
		startIn:     8 * time.Hour,
		maxMembers:  5,
		summary:     "Remote work session with laptops and coffee",
		topics:      []string{"remote work", "coffee"},
	},
}

// Result lists what was created
type Result struct {
	Users []model.User
	Chats []model.PublicChat
}

// Run creates the demo users with their profile signals, then the demo chats hosted by the first user
func Run(ctx context.Context, w Writer, svc *service.MatchmakingService, now time.Time) (*Result, error) {
	res := &Result{}

	for i, du := range demoUsers {
		user := &model.User{Username: du.username}
		if err := w.AddUser(ctx, user); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", du.username, err)
		}
		res.Users = append(res.Users, *user)

		for tag, weight := range du.prefs {
			if err := w.AddPreference(ctx, &model.UserPreference{UserID: user.ID, PreferenceType: tag, Weight: weight}); err != nil {
				return nil, fmt.Errorf("seed preference: %w", err)
			}
		}
		for j, body := range du.posts {
			post := &model.Post{UserID: user.ID, Body: body, CreatedAt: now.Add(-time.Duration(i*10+j) * time.Hour)}
			if err := w.AddPost(ctx, post); err != nil {
				return nil, fmt.Errorf("seed post: %w", err)
			}
		}
		for _, p := range du.places {
			lat, lng := p.lat, p.lng
			loc := &model.FavoriteLocation{UserID: user.ID, Name: p.name, Latitude: &lat, Longitude: &lng}
			if err := w.AddFavoriteLocation(ctx, loc); err != nil {
				return nil, fmt.Errorf("seed location: %w", err)
			}
		}
	}

	host := res.Users[0].ID
	for _, dc := range demoChats {
		in := service.CreateChatInput{
			Name:          dc.name,
			Description:   dc.description,
			ScheduledDate: now.Add(dc.startIn),
			MaxMembers:    &dc.maxMembers,
		}
		if dc.at != nil {
			lat, lng := dc.at.lat, dc.at.lng
			in.LocationName, in.Latitude, in.Longitude = dc.at.name, &lat, &lng
		}

		chat, err := svc.Create(ctx, host, in)
		if err != nil {
			return nil, fmt.Errorf("seed chat %s: %w", dc.name, err)
		}
		if _, err := svc.UpsertSummary(ctx, host, chat.ID, dc.summary, dc.topics); err != nil {
			return nil, fmt.Errorf("seed summary %s: %w", dc.name, err)
		}
		res.Chats = append(res.Chats, *chat)
	}

	return res, nil
}
