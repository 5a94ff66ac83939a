// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/moviesavanna/config.yaml",
	"/etc/moviesavanna/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                3000,
			Host:                "0.0.0.0",
			Timeout:             30 * time.Second,
			Environment:         "production",
			MaintenanceInterval: 5 * time.Minute,
		},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			ImageBaseURL: "https://image.tmdb.org/t/p",
			RateLimit:    40,
			RateWindow:   10 * time.Second,
			DefaultTTL:   30 * time.Minute,
			SearchTTL:    10 * time.Minute,
			DetailsTTL:   time.Hour,
			StaleMaxAge:  24 * time.Hour,
			Timeout:      10 * time.Second,
		},
		Favorites: FavoritesConfig{
			Backend: FavoritesBackendSupabase,
		},
		Session: SessionConfig{
			Store:        SessionStoreMemory,
			StorePath:    "/data/sessions",
			TTL:          7 * 24 * time.Hour,
			CookieName:   "ms_session",
			CookieSecure: true,
		},
		Security: SecurityConfig{
			CORSOrigins:             []string{},
			TrustedProxies:          []string{},
			RateLimitReqs:           100,
			RateLimitWindow:         time.Minute,
			SignupAttempts:          3,
			SignupAttemptWindow:     time.Hour,
			ActivationAttempts:      5,
			ActivationAttemptWindow: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf layers defaults, the optional YAML file and environment
// variables, then unmarshals and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// processSliceFields splits comma-separated env values for slice fields.
// YAML lists arrive as slices already and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		parts := make([]string, 0, strings.Count(s, ",")+1)
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings is the complete list of recognised environment variables.
// Anything else in the environment is ignored.
var envMappings = map[string]string{
	"port":                 "server.port",
	"host":                 "server.host",
	"http_timeout":         "server.timeout",
	"environment":          "server.environment",
	"maintenance_interval": "server.maintenance_interval",

	"tmdb_api_key":           "tmdb.api_key",
	"tmdb_base_url":          "tmdb.base_url",
	"tmdb_image_base_url":    "tmdb.image_base_url",
	"tmdb_rate_limit":        "tmdb.rate_limit",
	"tmdb_rate_window":       "tmdb.rate_window",
	"tmdb_default_ttl":       "tmdb.default_ttl",
	"tmdb_search_ttl":        "tmdb.search_ttl",
	"tmdb_details_ttl":       "tmdb.details_ttl",
	"tmdb_stale_max_age":     "tmdb.stale_max_age",
	"tmdb_cache_max_entries": "tmdb.cache_max_entries",
	"tmdb_timeout":           "tmdb.timeout",

	"supabase_url":              "supabase.url",
	"supabase_anon_key":         "supabase.anon_key",
	"supabase_service_role_key": "supabase.service_role_key",

	"favorites_backend": "favorites.backend",

	"session_store":          "session.store",
	"session_store_path":     "session.store_path",
	"session_ttl":            "session.ttl",
	"session_cookie_name":    "session.cookie_name",
	"session_cookie_secure":  "session.cookie_secure",
	"session_encryption_key": "session.encryption_key",

	"cors_origins":              "security.cors_origins",
	"trusted_proxies":           "security.trusted_proxies",
	"rate_limit_requests":       "security.rate_limit_reqs",
	"rate_limit_window":         "security.rate_limit_window",
	"disable_rate_limit":        "security.rate_limit_disabled",
	"activation_url":            "security.activation_url",
	"signup_attempts":           "security.signup_attempts",
	"signup_attempt_window":     "security.signup_attempt_window",
	"activation_attempts":       "security.activation_attempts",
	"activation_attempt_window": "security.activation_attempt_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps TMDB_API_KEY to tmdb.api_key and so on. Unknown
// variables map to "" so koanf skips them.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
