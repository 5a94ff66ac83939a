// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/authz"
	"github.com/tomtom215/moviesavanna/internal/middleware"
	"github.com/tomtom215/moviesavanna/internal/policy"
)

// Router wires the handler, the session and policy middleware and the
// casbin enforcer into a chi route tree.
type Router struct {
	handler       *Handler
	sessions      *auth.SessionMiddleware
	policy        *policy.Middleware
	admin         *authz.Middleware
	chiMiddleware *ChiMiddleware
	trustProxy    bool
}

// NewRouter creates a new router. chiMw may be nil, in which case it is
// built from the handler's security config.
func NewRouter(handler *Handler, sessions *auth.SessionMiddleware, engine *policy.Engine, enforcer *authz.Enforcer, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(ChiMiddlewareConfigFromSecurity(&handler.config.Security))
	}
	return &Router{
		handler:       handler,
		sessions:      sessions,
		policy:        policy.NewMiddleware(engine, writeDeny),
		admin:         authz.NewMiddleware(enforcer, writeDeny),
		chiMiddleware: chiMw,
		trustProxy:    len(handler.config.Security.TrustedProxies) > 0,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order. Sessions resolve
	// before the policy engine evaluates the path.
	r.Use(middleware.RequestID)
	if router.trustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.handler.perfMon.Middleware)
	r.Use(middleware.Compression)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(router.sessions.Authenticate)
	r.Use(router.policy.Handler)

	r.Route("/api/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitAuth())
		r.Use(APISecurityHeaders())
		r.Post("/signup", router.handler.Signup)
		r.Post("/login", router.handler.Login)
		r.Post("/verify", router.handler.VerifyActivation)
		r.Post("/resend-verification", router.handler.ResendVerification)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		r.Route("/movies", func(r chi.Router) {
			r.Get("/popular", router.handler.PopularMovies)
			r.Get("/search", router.handler.SearchMovies)
			r.Get("/discover", router.handler.DiscoverMovies)
			r.Get("/{id}", router.handler.MovieDetails)
			r.Get("/{id}/similar", router.handler.SimilarMovies)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", router.handler.ListFavorites)
			r.Post("/toggle", router.handler.ToggleFavorite)
			r.Get("/{movieId}", router.handler.FavoriteStatus)
		})
		r.Get("/recommendations", router.handler.Recommendations)

		// Operational endpoints are gated by the casbin policy.
		r.Group(func(r chi.Router) {
			r.Use(router.admin.AuthorizeRequest)
			r.Get("/cache/stats", router.handler.CacheStats)
			r.Post("/cache/clear", router.handler.ClearCache)
			r.Get("/admin/performance", router.handler.PerformanceStats)
		})
	})

	r.Get("/logout", router.handler.Logout)
	r.Post("/logout", router.handler.Logout)

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			respondError(w, http.StatusNotFound, ErrCodeNotFound, "Endpoint not found", "")
			return
		}
		http.NotFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", "")
	})

	return r
}

// writeDeny renders policy and authorization refusals: the JSON error
// envelope for API paths and plain text for pages.
func writeDeny(w http.ResponseWriter, r *http.Request, status int, message string) {
	if isAPIPath(r.URL.Path) {
		respondError(w, status, errorCodeForStatus(status), message, "")
		return
	}
	http.Error(w, message, status)
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
