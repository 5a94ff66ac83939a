// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/moviesavanna/internal/api"
	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/authz"
	"github.com/tomtom215/moviesavanna/internal/cache"
	"github.com/tomtom215/moviesavanna/internal/config"
	"github.com/tomtom215/moviesavanna/internal/favorites"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/policy"
	"github.com/tomtom215/moviesavanna/internal/ratelimit"
	"github.com/tomtom215/moviesavanna/internal/recommend"
	"github.com/tomtom215/moviesavanna/internal/supervisor/services"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

// app holds the long-lived components shared by the router and the
// maintenance service.
type app struct {
	fetcher            *tmdb.Fetcher
	sessionFactory     *auth.SessionStoreFactory
	sessions           *auth.SessionMiddleware
	enforcer           *authz.Enforcer
	policy             *policy.Engine
	signupAttempts     *ratelimit.AttemptLimiter
	activationAttempts *ratelimit.AttemptLimiter
	handler            *api.Handler
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	// TMDB proxy: one cache and one limiter for the whole process.
	var cacheOpts []cache.Option
	if cfg.TMDB.CacheMaxEntries > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxEntries(cfg.TMDB.CacheMaxEntries))
	}
	responseCache := cache.New(cfg.TMDB.DefaultTTL, cacheOpts...)
	limiter := ratelimit.NewSlidingWindow(cfg.TMDB.RateLimit, cfg.TMDB.RateWindow)
	a.fetcher = tmdb.NewFetcher(tmdb.FetcherConfig{
		BaseURL:    cfg.TMDB.BaseURL,
		APIKey:     cfg.TMDB.APIKey,
		DefaultTTL: cfg.TMDB.DefaultTTL,
		Timeout:    cfg.TMDB.Timeout,
	}, responseCache, limiter)
	movies := tmdb.NewClient(a.fetcher, cfg.TMDB.ImageBaseURL, tmdb.TTLs{
		Default: cfg.TMDB.DefaultTTL,
		Search:  cfg.TMDB.SearchTTL,
		Details: cfg.TMDB.DetailsTTL,
	})
	logging.Info().
		Int("rate_limit", cfg.TMDB.RateLimit).
		Dur("rate_window", cfg.TMDB.RateWindow).
		Msg("TMDB client initialized")

	identity, err := auth.NewSupabaseIdentity(auth.SupabaseConfig{
		URL:           cfg.Supabase.URL,
		AnonKey:       cfg.Supabase.AnonKey,
		ActivationURL: cfg.Security.ActivationURL,
	})
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}

	profileKey := cfg.Supabase.ServiceRoleKey
	if profileKey == "" {
		profileKey = cfg.Supabase.AnonKey
	}
	profiles, err := auth.NewSupabaseProfileReader(cfg.Supabase.URL, profileKey)
	if err != nil {
		return nil, fmt.Errorf("profile reader: %w", err)
	}

	favStore, err := newFavoritesStore(cfg)
	if err != nil {
		return nil, err
	}

	encryptor, err := auth.NewTokenEncryptor(&auth.TokenEncryptorConfig{MasterKey: cfg.Session.EncryptionKey})
	if err != nil {
		return nil, fmt.Errorf("session token encryption: %w", err)
	}
	a.sessionFactory, err = auth.NewSessionStoreFactory(auth.SessionStoreType(cfg.Session.Store), cfg.Session.StorePath, encryptor)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	sessionCfg := auth.DefaultSessionMiddlewareConfig()
	sessionCfg.CookieName = cfg.Session.CookieName
	sessionCfg.SessionTTL = cfg.Session.TTL
	sessionCfg.CookieSecure = cfg.Session.CookieSecure
	a.sessions = auth.NewSessionMiddleware(
		a.sessionFactory.CreateStore(),
		auth.NewResolver(identity, profiles),
		identity,
		sessionCfg,
	)

	a.enforcer, err = authz.NewEnforcer(ctx, authz.DefaultEnforcerConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("authorization policy: %w", err)
	}

	security := logging.NewSecurityLogger()
	a.policy = policy.NewEngine(
		policy.WithAdminChecker(a.enforcer),
		policy.WithSecurityLogger(security),
	)

	a.signupAttempts = ratelimit.NewAttemptLimiter(ratelimit.AttemptConfig{
		MaxAttempts: cfg.Security.SignupAttempts,
		Window:      cfg.Security.SignupAttemptWindow,
	})
	a.activationAttempts = ratelimit.NewAttemptLimiter(ratelimit.AttemptConfig{
		MaxAttempts: cfg.Security.ActivationAttempts,
		Window:      cfg.Security.ActivationAttemptWindow,
	})

	a.handler = api.NewHandler(cfg, api.Dependencies{
		Movies:             movies,
		Favorites:          favStore,
		Recommender:        recommend.NewEngine(movies, recommend.DefaultConfig()),
		Identity:           identity,
		Sessions:           a.sessions,
		Security:           security,
		SignupAttempts:     a.signupAttempts,
		ActivationAttempts: a.activationAttempts,
	})

	return a, nil
}

func newFavoritesStore(cfg *config.Config) (favorites.Store, error) {
	switch cfg.Favorites.Backend {
	case config.FavoritesBackendMemory:
		logging.Warn().Msg("Favorites are kept in memory and lost on restart (FAVORITES_BACKEND=memory)")
		return favorites.NewMemoryStore(), nil
	default:
		store, err := favorites.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
		if err != nil {
			return nil, fmt.Errorf("favorites store: %w", err)
		}
		return store, nil
	}
}

// maintenanceTasks lists the periodic sweeps run by the maintenance layer.
func (a *app) maintenanceTasks(cfg *config.Config) []services.Task {
	staleMaxAge := cfg.TMDB.StaleMaxAge
	store := a.sessions.Store()
	return []services.Task{
		{Name: "tmdb-stale-cache", Run: func(context.Context) (int, error) {
			return a.fetcher.PruneStale(staleMaxAge), nil
		}},
		{Name: "signup-attempts", Run: func(context.Context) (int, error) {
			return a.signupAttempts.Cleanup(), nil
		}},
		{Name: "activation-attempts", Run: func(context.Context) (int, error) {
			return a.activationAttempts.Cleanup(), nil
		}},
		{Name: "sessions", Run: func(ctx context.Context) (int, error) {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return store.CleanupExpired(ctx)
		}},
	}
}

// Close releases the authorization enforcer and the session database.
func (a *app) Close() {
	if a.enforcer != nil {
		a.enforcer.Close()
	}
	if a.sessionFactory != nil {
		if err := a.sessionFactory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}
}
