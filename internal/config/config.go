// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package config loads MovieSavanna configuration.
//
// Loading order (later layers win):
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (CONFIG_PATH, config.yaml, /etc/moviesavanna/config.yaml)
//  3. Environment variables: the names in envMappings
//
// Load validates the merged result and refuses to start on missing
// credentials or malformed URLs.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	TMDB      TMDBConfig      `koanf:"tmdb"`
	Supabase  SupabaseConfig  `koanf:"supabase"`
	Favorites FavoritesConfig `koanf:"favorites"`
	Session   SessionConfig   `koanf:"session"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	// Timeout bounds request read and write time.
	Timeout time.Duration `koanf:"timeout"`
	// Environment is development or production. Development exposes
	// internal error details in API responses.
	Environment string `koanf:"environment"`
	// MaintenanceInterval is how often stale cache entries, attempt
	// windows and expired sessions are swept.
	MaintenanceInterval time.Duration `koanf:"maintenance_interval"`
}

// TMDBConfig configures the movie metadata proxy.
type TMDBConfig struct {
	APIKey       string `koanf:"api_key"`
	BaseURL      string `koanf:"base_url"`
	ImageBaseURL string `koanf:"image_base_url"`

	// RateLimit admissions per RateWindow, process-wide.
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`

	DefaultTTL time.Duration `koanf:"default_ttl"`
	SearchTTL  time.Duration `koanf:"search_ttl"`
	DetailsTTL time.Duration `koanf:"details_ttl"`

	// StaleMaxAge bounds how long an expired payload is kept for fallback.
	StaleMaxAge time.Duration `koanf:"stale_max_age"`

	// CacheMaxEntries bounds the live cache (0 = unbounded).
	CacheMaxEntries int `koanf:"cache_max_entries"`

	Timeout time.Duration `koanf:"timeout"`
}

// SupabaseConfig holds the project URL and keys.
type SupabaseConfig struct {
	URL            string `koanf:"url"`
	AnonKey        string `koanf:"anon_key"`
	ServiceRoleKey string `koanf:"service_role_key"`
}

// FavoritesConfig selects the favorites backend: supabase or memory.
type FavoritesConfig struct {
	Backend string `koanf:"backend"`
}

// SessionConfig controls server-side sessions and the session cookie.
type SessionConfig struct {
	// Store is memory or badger.
	Store        string        `koanf:"store"`
	StorePath    string        `koanf:"store_path"`
	TTL          time.Duration `koanf:"ttl"`
	CookieName   string        `koanf:"cookie_name"`
	CookieSecure bool          `koanf:"cookie_secure"`
	// EncryptionKey is a base64 master key for sealing provider tokens in
	// the badger store. Empty disables encryption.
	EncryptionKey string `koanf:"encryption_key"`
}

// SecurityConfig holds inbound protection and account-flow settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// ActivationURL is sent to the identity provider as the email
	// confirmation redirect target.
	ActivationURL string `koanf:"activation_url"`

	SignupAttempts          int           `koanf:"signup_attempts"`
	SignupAttemptWindow     time.Duration `koanf:"signup_attempt_window"`
	ActivationAttempts      int           `koanf:"activation_attempts"`
	ActivationAttemptWindow time.Duration `koanf:"activation_attempt_window"`
}

// LoggingConfig maps onto logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment reports whether internal error details may be exposed.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Environment, "development")
}

const (
	FavoritesBackendSupabase = "supabase"
	FavoritesBackendMemory   = "memory"

	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

// Load is the entry point used by main.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
