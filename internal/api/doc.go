// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package api provides the HTTP JSON API for MovieSavanna.

Key Components:

  - Router: chi route tree and the global middleware stack
  - Handler: request handlers, split by area across handlers_*.go
  - Response formatting: {success, data} and {success, error, error_code}
    envelopes for data endpoints, {success, message, data} form results
    for the account flows
  - ChiMiddleware: go-chi/cors and go-chi/httprate factories

API Categories:

1. Movies (/api/movies/): popular, search, discover, details and similar.
Responses are proxied from TMDB through the cached, rate limited fetcher
and carry Cache-Control and ETag headers.

2. Favorites (/api/favorites/, /api/recommendations): per-user favorites
and genre-weighted recommendations. Listing and toggling require a
session; the status check answers false for anonymous callers.

3. Account (/api/auth/, /logout): signup, login, activation and resend.
Provider tokens stay server-side; the browser only holds the session
cookie.

4. Operational (/api/health, /api/cache/, /api/admin/, /metrics): health,
cache statistics and per-route latency. Cache and admin routes are gated
by the casbin policy.

Middleware order:

	RequestID -> RealIP (trusted proxies only) -> Recoverer ->
	PrometheusMetrics -> PerformanceMonitor -> Compression -> CORS ->
	SessionMiddleware.Authenticate -> policy.Middleware -> route limiter

Usage Example:

	handler := api.NewHandler(cfg, api.Dependencies{
	    Movies:      tmdbClient,
	    Favorites:   favStore,
	    Recommender: recommend.NewEngine(tmdbClient, recommend.DefaultConfig()),
	    Identity:    identity,
	    Sessions:    sessions,
	})
	router := api.NewRouter(handler, sessions, policy.NewEngine(), enforcer, nil)
	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())
*/
package api
