package matching

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newChat(name string, startIn time.Duration, summary string) *model.PublicChat {
	start := testNow.Add(startIn)
	return &model.PublicChat{
		ID:               uuid.New(),
		Name:             name,
		IsPublic:         true,
		Status:           model.ChatStatusActive,
		ScheduledDate:    start,
		ScheduledEndTime: start.Add(2 * time.Hour),
		MaxMembers:       5,
		Summary:          &model.PublicChatSummary{SummaryText: summary},
	}
}

func TestTimeScore(t *testing.T) {
	tests := []struct {
		name      string
		scheduled time.Time
		want      float64
	}{
		{"missing date", time.Time{}, 0.5},
		{"already started", testNow.Add(-time.Minute), 0},
		{"now", testNow, 1.0},
		{"12 hours", testNow.Add(12 * time.Hour), 1.0},
		{"exactly 24 hours", testNow.Add(24 * time.Hour), 1.0},
		{"two days", testNow.Add(48 * time.Hour), 0.8},
		{"five days", testNow.Add(120 * time.Hour), 0.6},
		{"exactly one week", testNow.Add(168 * time.Hour), 0.6},
		{"ten days", testNow.Add(240 * time.Hour), 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeScore(tt.scheduled, testNow); got != tt.want {
				t.Fatalf("TimeScore() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestLocationScore(t *testing.T) {
	s := NewScorer()
	here := &GeoPoint{Lat: 10.7769, Lng: 106.6955}

	chat := newChat("c", time.Hour, "")
	if got := s.LocationScore(here, chat); got != 0.5 {
		t.Fatalf("chat without location = %f, want 0.5", got)
	}

	chat.Latitude, chat.Longitude = ptr(10.7769), ptr(106.6955)
	if got := s.LocationScore(nil, chat); got != 0.5 {
		t.Fatalf("profile without location = %f, want 0.5", got)
	}
	if got := s.LocationScore(here, chat); got != 1 {
		t.Fatalf("same point = %f, want 1", got)
	}

	chat.Latitude, chat.Longitude = ptr(21.0285), ptr(105.8542)
	if got := s.LocationScore(here, chat); got != 0 {
		t.Fatalf("far away = %f, want 0", got)
	}
}

func TestScore_Bounded(t *testing.T) {
	s := NewScorer()
	profiles := []InterestProfile{
		{Text: DefaultProfileText},
		{Text: "coffee dessert music", Location: &GeoPoint{Lat: 10.77, Lng: 106.69}},
		{Text: "", Location: &GeoPoint{Lat: -89.9, Lng: 179.9}},
	}
	chats := []*model.PublicChat{
		newChat("soon", time.Hour, "coffee and dessert"),
		newChat("past", -time.Hour, "music"),
		newChat("later", 400*time.Hour, ""),
	}
	chats[0].Latitude, chats[0].Longitude = ptr(10.78), ptr(106.70)

	for _, p := range profiles {
		for _, c := range chats {
			sc := s.Score(p, c, testNow, Weights{})
			for name, v := range map[string]float64{
				"total": sc.Total, "interest": sc.Interest, "location": sc.Location, "time": sc.Time,
			} {
				if v < 0 || v > 1 || math.IsNaN(v) {
					t.Fatalf("%s score out of range: %f", name, v)
				}
			}
		}
	}
}

func TestScore_TimeDecayMonotonic(t *testing.T) {
	s := NewScorer()
	profile := InterestProfile{Text: "board games"}

	soon := s.Score(profile, newChat("soon", 12*time.Hour, "board games night"), testNow, Weights{})
	later := s.Score(profile, newChat("later", 240*time.Hour, "board games night"), testNow, Weights{})

	if soon.Time != 1.0 || later.Time != 0.3 {
		t.Fatalf("time scores = %f / %f, want 1.0 / 0.3", soon.Time, later.Time)
	}
	if soon.Total < later.Total {
		t.Fatalf("12h total %f < 240h total %f", soon.Total, later.Total)
	}
}

func TestScore_CoffeeNight(t *testing.T) {
	s := NewScorer()
	chat := newChat("Coffee Night", 6*time.Hour, "coffee and dessert")
	chat.Latitude, chat.Longitude = ptr(10.7769), ptr(106.6955)
	chat.JoinedCount = 2

	profile := InterestProfile{
		Text:     "eating coffee cafe",
		Location: &GeoPoint{Lat: 10.7769, Lng: 106.6955},
	}

	sc := s.Score(profile, chat, testNow, Weights{})

	if sc.Location <= 0.9 {
		t.Errorf("location = %f, want > 0.9", sc.Location)
	}
	if sc.Time != 1.0 {
		t.Errorf("time = %f, want 1.0", sc.Time)
	}
	if sc.Interest <= 0 || sc.Interest >= 1 {
		t.Errorf("interest = %f, want strictly between 0 and 1", sc.Interest)
	}
	if sc.Total <= 0.5 {
		t.Errorf("total = %f, want > 0.5", sc.Total)
	}
	if sc.Weights != DefaultWeights {
		t.Errorf("weights = %+v, want defaults", sc.Weights)
	}
}

func TestScore_CustomWeights(t *testing.T) {
	s := NewScorer()
	chat := newChat("c", time.Hour, "")
	sc := s.Score(InterestProfile{Text: "x"}, chat, testNow, Weights{Time: 1})
	if sc.Total != 1 {
		t.Fatalf("time-only total = %f, want 1", sc.Total)
	}
}

func TestInterestScore_RecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewScorer(
		WithSimilarity(SimilarityFunc(func(a, b string) float64 {
			panic("tokenizer exploded")
		})),
		WithLogger(&logger.Logger{Logger: zap.New(core)}),
	)
	if got := s.InterestScore("coffee", "coffee"); got != 0 {
		t.Fatalf("InterestScore after panic = %f, want 0", got)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	var logged error
	for _, f := range entries[0].Context {
		if f.Key == "error" {
			logged, _ = f.Interface.(error)
		}
	}
	if !errors.Is(logged, model.ErrScoring) {
		t.Fatalf("logged error = %v, want ErrScoring", logged)
	}

	nan := NewScorer(WithSimilarity(SimilarityFunc(func(a, b string) float64 {
		return math.NaN()
	})))
	if got := nan.InterestScore("coffee", "coffee"); got != 0 {
		t.Fatalf("InterestScore for NaN = %f, want 0", got)
	}
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		w       Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights, false},
		{"single component", Weights{Interest: 1}, false},
		{"sum too low", Weights{Interest: 0.5, Location: 0.3}, true},
		{"negative", Weights{Interest: 1.2, Location: -0.2}, true},
		{"nan", Weights{Interest: math.NaN(), Location: 0.5, Time: 0.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && model.KindOf(err) != model.KindValidation {
				t.Fatalf("Validate() kind = %v, want validation", model.KindOf(err))
			}
		})
	}
}

func TestRank_ExcludesIneligibleAndLimits(t *testing.T) {
	s := NewScorer()

	ended := newChat("ended", -5*time.Hour, "coffee")
	full := newChat("full", 2*time.Hour, "coffee")
	full.JoinedCount = 5
	eligible := []*model.PublicChat{
		newChat("a", 3*time.Hour, "coffee tasting"),
		newChat("b", 50*time.Hour, "jazz"),
		newChat("c", 300*time.Hour, "hiking"),
	}
	chats := []*model.PublicChat{eligible[0], ended, eligible[1], full, eligible[2]}

	ranked, err := s.Rank(context.Background(), RankRequest{
		Profile: InterestProfile{Text: "coffee"},
		Chats:   chats,
		Now:     testNow,
		TopK:    3,
	})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("Rank() returned %d chats, want 3", len(ranked))
	}
	for i, r := range ranked {
		if r.Chat.ID == ended.ID || r.Chat.ID == full.ID {
			t.Fatalf("Rank() returned excluded chat %q", r.Chat.Name)
		}
		if i > 0 && ranked[i-1].Score.Total < r.Score.Total {
			t.Fatalf("Rank() not sorted descending at %d", i)
		}
	}
}

func TestRank_ExcludesClosedStatuses(t *testing.T) {
	s := NewScorer()
	cancelled := newChat("cancelled", time.Hour, "")
	cancelled.Status = model.ChatStatusCancelled
	endedByOwner := newChat("ended", time.Hour, "")
	endedByOwner.Status = model.ChatStatusEnded
	private := newChat("private", time.Hour, "")
	private.IsPublic = false

	ranked, err := s.Rank(context.Background(), RankRequest{
		Chats: []*model.PublicChat{cancelled, endedByOwner, private, nil},
		Now:   testNow,
	})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("Rank() returned %d chats, want 0", len(ranked))
	}
}

func TestRank_StableOnTies(t *testing.T) {
	s := NewScorer()
	var chats []*model.PublicChat
	for i := 0; i < 20; i++ {
		chats = append(chats, newChat("tie", 2*time.Hour, "same"))
	}

	ranked, err := s.Rank(context.Background(), RankRequest{Profile: InterestProfile{Text: "other"}, Chats: chats, Now: testNow})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	for i := range chats {
		if ranked[i].Chat.ID != chats[i].ID {
			t.Fatalf("tie at %d not kept in input order", i)
		}
	}
}

func TestRank_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScorer().Rank(ctx, RankRequest{
		Chats: []*model.PublicChat{newChat("a", time.Hour, "")},
		Now:   testNow,
	})
	if err == nil {
		t.Fatal("Rank() with cancelled context should fail")
	}
}
