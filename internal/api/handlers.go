// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"time"

	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/config"
	"github.com/tomtom215/moviesavanna/internal/favorites"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/middleware"
	"github.com/tomtom215/moviesavanna/internal/ratelimit"
	"github.com/tomtom215/moviesavanna/internal/recommend"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

// MovieCatalog is the movie metadata surface the handlers proxy.
// *tmdb.Client satisfies it.
type MovieCatalog interface {
	Popular(ctx context.Context, page int) (*tmdb.MovieList, error)
	Search(ctx context.Context, query string, page int) (*tmdb.MovieList, error)
	Details(ctx context.Context, id int) (*tmdb.MovieDetails, error)
	Credits(ctx context.Context, id int) (*tmdb.Credits, error)
	Videos(ctx context.Context, id int) (*tmdb.Videos, error)
	Discover(ctx context.Context, p tmdb.DiscoverParams) (*tmdb.MovieList, error)
	ImageURL(path, size string) string
	CacheStats() tmdb.CacheStats
	ClearCache()
}

// Dependencies are the collaborators a Handler is built from. Limiters and
// the performance monitor are created from the config when nil.
type Dependencies struct {
	Movies      MovieCatalog
	Favorites   favorites.Store
	Recommender *recommend.Engine
	Identity    auth.IdentityProvider
	Sessions    *auth.SessionMiddleware
	Security    *logging.SecurityLogger

	SignupAttempts     *ratelimit.AttemptLimiter
	ActivationAttempts *ratelimit.AttemptLimiter
	PerfMon            *middleware.PerformanceMonitor
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_movies.go: movie metadata proxy
//   - handlers_favorites.go: favorites and recommendations
//   - handlers_auth.go: signup, login, activation, logout
//   - handlers_health.go: health and operational endpoints
type Handler struct {
	config      *config.Config
	movies      MovieCatalog
	favorites   favorites.Store
	recommender *recommend.Engine
	identity    auth.IdentityProvider
	sessions    *auth.SessionMiddleware
	security    *logging.SecurityLogger

	signupAttempts     *ratelimit.AttemptLimiter
	activationAttempts *ratelimit.AttemptLimiter

	perfMon   *middleware.PerformanceMonitor
	startTime time.Time
}

// NewHandler creates a new API handler.
//
// Example:
//
//	handler := api.NewHandler(cfg, api.Dependencies{Movies: tmdbClient, ...})
//	router := api.NewRouter(handler, sessions, policyEngine, enforcer)
//	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())
func NewHandler(cfg *config.Config, deps Dependencies) *Handler {
	if deps.Security == nil {
		deps.Security = logging.NewSecurityLogger()
	}
	if deps.SignupAttempts == nil {
		deps.SignupAttempts = ratelimit.NewAttemptLimiter(ratelimit.AttemptConfig{
			MaxAttempts: cfg.Security.SignupAttempts,
			Window:      cfg.Security.SignupAttemptWindow,
		})
	}
	if deps.ActivationAttempts == nil {
		deps.ActivationAttempts = ratelimit.NewAttemptLimiter(ratelimit.AttemptConfig{
			MaxAttempts: cfg.Security.ActivationAttempts,
			Window:      cfg.Security.ActivationAttemptWindow,
		})
	}
	if deps.PerfMon == nil {
		deps.PerfMon = middleware.NewPerformanceMonitor(1000, time.Second) // Keep last 1000 requests
	}

	return &Handler{
		config:             cfg,
		movies:             deps.Movies,
		favorites:          deps.Favorites,
		recommender:        deps.Recommender,
		identity:           deps.Identity,
		sessions:           deps.Sessions,
		security:           deps.Security,
		signupAttempts:     deps.SignupAttempts,
		activationAttempts: deps.ActivationAttempts,
		perfMon:            deps.PerfMon,
		startTime:          time.Now(),
	}
}

// PerfMon returns the request performance monitor fed by the router.
func (h *Handler) PerfMon() *middleware.PerformanceMonitor {
	return h.perfMon
}

// details returns err's text for error responses in development, and ""
// otherwise.
func (h *Handler) details(err error) string {
	if err == nil || h.config == nil || !h.config.IsDevelopment() {
		return ""
	}
	return err.Error()
}
