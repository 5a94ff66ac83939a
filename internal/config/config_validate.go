// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/moviesavanna/internal/logging"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateTMDB,
		c.validateSupabase,
		c.validateFavorites,
		c.validateSession,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Server.Environment) {
	case "development", "production", "test":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, production or test, got: %s", c.Server.Environment)
	}
	if c.Server.MaintenanceInterval <= 0 {
		return fmt.Errorf("MAINTENANCE_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if err := validateHTTPURL(c.TMDB.BaseURL, "TMDB_BASE_URL", true); err != nil {
		return err
	}
	if err := validateHTTPURL(c.TMDB.ImageBaseURL, "TMDB_IMAGE_BASE_URL", true); err != nil {
		return err
	}
	if c.TMDB.RateLimit <= 0 {
		return fmt.Errorf("TMDB_RATE_LIMIT must be positive, got: %d", c.TMDB.RateLimit)
	}
	if c.TMDB.RateWindow <= 0 {
		return fmt.Errorf("TMDB_RATE_WINDOW must be positive, got: %v", c.TMDB.RateWindow)
	}
	if c.TMDB.DefaultTTL <= 0 || c.TMDB.SearchTTL <= 0 || c.TMDB.DetailsTTL <= 0 {
		return fmt.Errorf("TMDB cache TTLs must be positive")
	}
	if c.TMDB.CacheMaxEntries < 0 {
		return fmt.Errorf("TMDB_CACHE_MAX_ENTRIES must not be negative")
	}
	return nil
}

// validateSupabase requires the project URL and anon key; identity is
// always served by Supabase. The service role key is optional and only
// used by the favorites store.
func (c *Config) validateSupabase() error {
	if c.Supabase.URL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if err := validateHTTPURL(c.Supabase.URL, "SUPABASE_URL", false); err != nil {
		return err
	}
	if c.Supabase.AnonKey == "" {
		return fmt.Errorf("SUPABASE_ANON_KEY is required when SUPABASE_URL is set")
	}
	return nil
}

func (c *Config) validateFavorites() error {
	switch c.Favorites.Backend {
	case FavoritesBackendSupabase, FavoritesBackendMemory:
		return nil
	}
	return fmt.Errorf("FAVORITES_BACKEND must be supabase or memory, got: %s", c.Favorites.Backend)
}

func (c *Config) validateSession() error {
	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreBadger:
		if c.Session.StorePath == "" {
			return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be memory or badger, got: %s", c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.Session.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Session.EncryptionKey)
		if err != nil || len(key) < 16 {
			return fmt.Errorf("SESSION_ENCRYPTION_KEY must be base64 of at least 16 bytes")
		}
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs <= 0 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got: %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got: %v", c.Security.RateLimitWindow)
		}
	}
	if c.Security.ActivationURL != "" {
		if err := validateHTTPURL(c.Security.ActivationURL, "ACTIVATION_URL", true); err != nil {
			return err
		}
	}
	if c.Security.SignupAttempts <= 0 || c.Security.ActivationAttempts <= 0 {
		return fmt.Errorf("attempt limits must be positive")
	}
	if c.Security.SignupAttemptWindow <= 0 || c.Security.ActivationAttemptWindow <= 0 {
		return fmt.Errorf("attempt windows must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL is invalid: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	}
	return fmt.Errorf("LOG_FORMAT must be json or console, got: %s", c.Logging.Format)
}

// validateHTTPURL checks scheme and host. allowPath permits a base path
// such as the /3 in https://api.themoviedb.org/3.
func validateHTTPURL(rawURL, fieldName string, allowPath bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if !allowPath && u.Path != "" && u.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, u.Path)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, u.RawQuery)
	}
	return nil
}
