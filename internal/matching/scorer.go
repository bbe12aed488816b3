package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/quocanhngo/publicchat/internal/model"
	"github.com/quocanhngo/publicchat/pkg/logger"
	"github.com/quocanhngo/publicchat/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxDistanceKM is the distance at which the location score reaches 0
	DefaultMaxDistanceKM = 50.0

	// neutralScore is used when a component cannot be computed
	neutralScore = 0.5

	weightTolerance = 1e-6
)

// Weights blends the three score components; they must sum to 1
type Weights struct {
	Interest float64 `json:"interest"`
	Location float64 `json:"location"`
	Time     float64 `json:"time"`
}

// DefaultWeights favors interest, then location, then urgency
var DefaultWeights = Weights{Interest: 0.5, Location: 0.3, Time: 0.2}

// Validate checks every weight is in [0, 1] and the sum is 1
func (w Weights) Validate() error {
	for name, v := range w.Map() {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return model.Validationf("weight %s must be between 0 and 1", name)
		}
	}
	if sum := w.Interest + w.Location + w.Time; math.Abs(sum-1) > weightTolerance {
		return model.Validationf("weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// IsZero reports whether no weight was set
func (w Weights) IsZero() bool {
	return w == Weights{}
}

func (w Weights) Map() map[string]float64 {
	return map[string]float64{
		"interest": w.Interest,
		"location": w.Location,
		"time":     w.Time,
	}
}

// Score is a total match score with its breakdown
type Score struct {
	Total    float64 `json:"total"`
	Interest float64 `json:"interest"`
	Location float64 `json:"location"`
	Time     float64 `json:"time"`
	Weights  Weights `json:"weights"`
}

// Ranked pairs a chat with its score
type Ranked struct {
	Chat  *model.PublicChat
	Score Score
}

// Scorer computes match scores between an interest profile and public chats
type Scorer struct {
	similarity    Similarity
	maxDistanceKM float64
	weights       Weights
	concurrency   int
	log           *logger.Logger
}

// Option configures a Scorer
type Option func(*Scorer)

// WithSimilarity replaces the interest similarity function
func WithSimilarity(sim Similarity) Option {
	return func(s *Scorer) {
		if sim != nil {
			s.similarity = sim
		}
	}
}

func WithMaxDistance(km float64) Option {
	return func(s *Scorer) {
		if km > 0 {
			s.maxDistanceKM = km
		}
	}
}

// WithWeights sets the default weights used when a call passes none
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if !w.IsZero() {
			s.weights = w
		}
	}
}

// WithLogger reports scoring fallbacks to log
func WithLogger(log *logger.Logger) Option {
	return func(s *Scorer) {
		if log != nil {
			s.log = log.Named("scorer")
		}
	}
}

// WithConcurrency bounds the goroutines used by Rank
func WithConcurrency(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewScorer creates a Scorer with TF-IDF interest similarity and default weights
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		similarity:    NewTFIDFCosine(DefaultMaxFeatures),
		maxDistanceKM: DefaultMaxDistanceKM,
		weights:       DefaultWeights,
		concurrency:   8,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the default weights
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score scores one chat for profile at now using w, or the default weights when w is zero
func (s *Scorer) Score(profile InterestProfile, chat *model.PublicChat, now time.Time, w Weights) Score {
	if w.IsZero() {
		w = s.weights
	}

	score := Score{
		Interest: s.InterestScore(profile.Text, chat.SummaryText()),
		Location: s.LocationScore(profile.Location, chat),
		Time:     TimeScore(chat.ScheduledDate, now),
		Weights:  w,
	}
	score.Total = clamp01(w.Interest*score.Interest + w.Location*score.Location + w.Time*score.Time)
	return score
}

// InterestScore never fails: empty text, NaN results and panics inside the
// similarity function all yield 0
func (s *Scorer) InterestScore(profileText, summary string) (score float64) {
	if profileText == "" || summary == "" {
		return 0
	}

	defer func() {
		if r := recover(); r != nil {
			s.fallback("interest", fmt.Errorf("%w: %v", model.ErrScoring, r))
			score = 0
		}
	}()

	v := s.similarity.Similarity(profileText, summary)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		s.fallback("interest", fmt.Errorf("%w: similarity returned %v", model.ErrScoring, v))
		return 0
	}
	return clamp01(v)
}

func (s *Scorer) fallback(component string, err error) {
	metrics.RecordScoringFallback(component)
	s.log.Warn("score component fell back to 0",
		zap.String("component", component),
		zap.Error(err),
	)
}

// LocationScore decays linearly with distance; unknown locations score 0.5
func (s *Scorer) LocationScore(point *GeoPoint, chat *model.PublicChat) float64 {
	if point == nil || !chat.HasLocation() {
		return neutralScore
	}

	d := Distance(point.Lat, point.Lng, *chat.Latitude, *chat.Longitude)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		metrics.RecordScoringFallback("location")
		return neutralScore
	}
	return math.Max(0, 1-d/s.maxDistanceKM)
}

// TimeScore favors chats starting soon. Past chats score 0, a missing date 0.5.
func TimeScore(scheduled, now time.Time) float64 {
	if scheduled.IsZero() {
		return neutralScore
	}
	if scheduled.Before(now) {
		return 0
	}

	hours := scheduled.Sub(now).Hours()
	switch {
	case hours <= 24:
		return 1.0
	case hours <= 72:
		return 0.8
	case hours <= 168:
		return 0.6
	default:
		return 0.3
	}
}

// RankRequest is the input to Rank
type RankRequest struct {
	Profile InterestProfile
	Chats   []*model.PublicChat
	Now     time.Time
	// TopK <= 0 returns every eligible chat
	TopK    int
	Weights Weights
}

// Rank drops ineligible chats, scores the rest concurrently and returns them
// sorted by total score. Equal scores keep input order.
// The only error is ctx's.
func (s *Scorer) Rank(ctx context.Context, req RankRequest) ([]Ranked, error) {
	eligible := make([]*model.PublicChat, 0, len(req.Chats))
	for _, chat := range req.Chats {
		if chat != nil && chat.IsEligible(req.Now) {
			eligible = append(eligible, chat)
		}
	}

	ranked := make([]Ranked, len(eligible))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, chat := range eligible {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ranked[i] = Ranked{Chat: chat, Score: s.Score(req.Profile, chat, req.Now, req.Weights)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Total > ranked[j].Score.Total
	})

	if req.TopK > 0 && len(ranked) > req.TopK {
		ranked = ranked[:req.TopK]
	}
	for _, r := range ranked {
		metrics.RecordMatchScore(r.Score.Total)
	}
	return ranked, nil
}
