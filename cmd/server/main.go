// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/moviesavanna/internal/api"
	"github.com/tomtom215/moviesavanna/internal/config"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/supervisor"
	"github.com/tomtom215/moviesavanna/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("favorites_backend", cfg.Favorites.Backend).
		Str("session_store", cfg.Session.Store).
		Msg("Starting MovieSavanna with supervisor tree")

	warnInsecureSettings(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer app.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	router := api.NewRouter(app.handler, app.sessions, app.policy, app.enforcer, nil)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	tree.AddMaintenanceService(services.NewMaintenanceService(cfg.Server.MaintenanceInterval, app.maintenanceTasks(cfg)...))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

func warnInsecureSettings(cfg *config.Config) {
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); credentialed requests are refused")
			break
		}
	}
	if cfg.Session.Store == config.SessionStoreMemory && !cfg.IsDevelopment() {
		logging.Warn().Msg("Session store is 'memory'; sessions are lost on restart. Consider SESSION_STORE=badger")
	}
	if cfg.Session.Store == config.SessionStoreBadger && cfg.Session.EncryptionKey == "" {
		logging.Warn().Msg("Session tokens are written to disk unencrypted. Set SESSION_ENCRYPTION_KEY to encrypt them")
	}
	if !cfg.Session.CookieSecure && !cfg.IsDevelopment() {
		logging.Warn().Msg("Session cookie is sent without the Secure flag (SESSION_COOKIE_SECURE=false)")
	}
}
