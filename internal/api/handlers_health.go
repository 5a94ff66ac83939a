// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/middleware"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status        string  `json:"status"`
	Environment   string  `json:"environment"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	// TMDB reports the outbound circuit breaker; an open breaker degrades
	// the status but the process is still serving.
	TMDBBreaker        string    `json:"tmdb_breaker"`
	RateLimitRemaining int       `json:"rate_limit_remaining"`
	Timestamp          time.Time `json:"timestamp"`
}

// PerformanceReport is the body of GET /api/admin/performance.
type PerformanceReport struct {
	Endpoints []middleware.EndpointStats `json:"endpoints"`
	Recent    []middleware.RequestSample `json:"recent"`
}

// Health handles GET /api/health. It always answers 200 while the process
// is up; Status is "degraded" when the TMDB breaker is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.movies.CacheStats()

	status := "healthy"
	if stats.BreakerState == "open" {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &DataResponse{
		Success: true,
		Data: &HealthStatus{
			Status:             status,
			Environment:        h.config.Server.Environment,
			UptimeSeconds:      time.Since(h.startTime).Seconds(),
			TMDBBreaker:        stats.BreakerState,
			RateLimitRemaining: stats.RateLimitRemaining,
			Timestamp:          time.Now().UTC(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &DataResponse{
		Success: true,
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
	})
}

// CacheStats handles GET /api/cache/stats (admin).
func (h *Handler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &DataResponse{Success: true, Data: h.movies.CacheStats()})
}

// ClearCache handles POST /api/cache/clear (admin).
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	before := h.movies.CacheStats()
	h.movies.ClearCache()
	logging.Ctx(r.Context()).Info().Int("entries", before.Total).Msg("Movie cache cleared by admin")

	respondJSON(w, http.StatusOK, &DataResponse{
		Success: true,
		Data: struct {
			Cleared int             `json:"cleared"`
			Stats   tmdb.CacheStats `json:"stats"`
		}{Cleared: before.Total, Stats: h.movies.CacheStats()},
	})
}

// PerformanceStats handles GET /api/admin/performance (admin). ?recent=
// bounds the sample list, default 20.
func (h *Handler) PerformanceStats(w http.ResponseWriter, r *http.Request) {
	n, ok := getIntParam(r, "recent", 20)
	if !ok || n < 0 || n > 1000 {
		n = 20
	}
	respondJSON(w, http.StatusOK, &DataResponse{
		Success: true,
		Data: &PerformanceReport{
			Endpoints: h.perfMon.Stats(),
			Recent:    h.perfMon.Recent(n),
		},
	})
}
