// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "moviesavanna"

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_active_requests",
			Help:      "Number of API requests currently being processed",
		},
	)

	// TMDB Metrics
	TMDBCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tmdb_cache_events_total",
			Help:      "TMDB response cache lookups by result",
		},
		[]string{"result"}, // hit, miss, stale
	)

	TMDBRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tmdb_requests_total",
			Help:      "Outbound TMDB requests by outcome",
		},
		[]string{"outcome"}, // success, upstream_error, transport_error, breaker_open
	)

	TMDBRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tmdb_request_duration_seconds",
			Help:      "Duration of outbound TMDB requests in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by a rate limiter",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_consecutive_failures",
			Help:      "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Policy, favorites, auth and recommendation metrics
	PolicyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_decisions_total",
			Help:      "Route policy decisions by kind and reason",
		},
		[]string{"kind", "reason"},
	)

	FavoritesOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favorites_operations_total",
			Help:      "Favorites store operations by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Account flow events (signup, login, activation, resend, logout, refresh)",
		},
		[]string{"event", "outcome"},
	)

	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation lists served by source",
		},
		[]string{"source"}, // personalized, popular
	)

	MaintenanceRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "maintenance_removed_total",
			Help:      "Entries removed by background maintenance tasks",
		},
		[]string{"task"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, path, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheEvent counts a TMDB cache lookup. result is hit, miss or stale.
func RecordCacheEvent(result string) {
	TMDBCacheEvents.WithLabelValues(result).Inc()
}

// RecordTMDBRequest records one outbound TMDB call.
func RecordTMDBRequest(outcome string, duration time.Duration) {
	TMDBRequestsTotal.WithLabelValues(outcome).Inc()
	if duration > 0 {
		TMDBRequestDuration.Observe(duration.Seconds())
	}
}

func RecordRateLimitRejection() {
	RateLimitRejections.Inc()
}

// RecordPolicyDecision counts a non-continue route decision.
func RecordPolicyDecision(kind, reason string) {
	PolicyDecisions.WithLabelValues(kind, reason).Inc()
}

func RecordFavoritesOperation(op string, err error) {
	FavoritesOperations.WithLabelValues(op, outcome(err)).Inc()
}

func RecordAuthEvent(event string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	AuthEvents.WithLabelValues(event, result).Inc()
}

func RecordRecommendations(source string) {
	RecommendationsTotal.WithLabelValues(source).Inc()
}

// RecordMaintenance adds the entries removed by one run of a maintenance task.
func RecordMaintenance(task string, removed int) {
	MaintenanceRemoved.WithLabelValues(task).Add(float64(removed))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
