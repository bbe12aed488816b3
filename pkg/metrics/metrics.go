// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MatchScores tracks the distribution of total match scores returned by ranking.
	MatchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "publicchat_match_scores",
			Help:    "Distribution of public chat match scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// ScoringFallbacks counts score components that degraded to a neutral value.
	ScoringFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publicchat_scoring_fallbacks_total",
			Help: "Score components recovered as neutral defaults",
		},
		[]string{"component"},
	)

	// LifecycleActions counts membership and chat transitions by outcome.
	LifecycleActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publicchat_lifecycle_actions_total",
			Help: "Public chat lifecycle actions",
		},
		[]string{"action", "outcome"},
	)

	// ChatsCreated counts created public chats.
	ChatsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publicchat_chats_created_total",
			Help: "Total public chats created",
		},
	)

	// ProfileCacheLookups counts interest profile cache lookups.
	ProfileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publicchat_profile_cache_lookups_total",
			Help: "Interest profile cache lookups",
		},
		[]string{"result"},
	)

	// RoomConnectionsActive tracks live room WebSocket connections on this instance.
	RoomConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "publicchat_room_connections_active",
			Help: "Number of active live room connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordMatchScore records one ranked score.
func RecordMatchScore(score float64) {
	MatchScores.Observe(score)
}

// RecordScoringFallback records a neutral fallback for a score component.
func RecordScoringFallback(component string) {
	ScoringFallbacks.WithLabelValues(component).Inc()
}

// RecordLifecycle records a lifecycle action and its outcome.
func RecordLifecycle(action, outcome string) {
	LifecycleActions.WithLabelValues(action, outcome).Inc()
}
