// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setRequiredEnv sets the minimum environment for a valid configuration.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TMDB_API_KEY", "tmdb-test-key")
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	// Keep the search from picking up a stray config.yaml.
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.TMDB.RateLimit != 40 {
		t.Errorf("TMDB.RateLimit = %d, want 40", cfg.TMDB.RateLimit)
	}
	if cfg.TMDB.RateWindow != 10*time.Second {
		t.Errorf("TMDB.RateWindow = %v, want 10s", cfg.TMDB.RateWindow)
	}
	if cfg.TMDB.DefaultTTL != 30*time.Minute {
		t.Errorf("TMDB.DefaultTTL = %v, want 30m", cfg.TMDB.DefaultTTL)
	}
	if cfg.TMDB.SearchTTL != 10*time.Minute {
		t.Errorf("TMDB.SearchTTL = %v, want 10m", cfg.TMDB.SearchTTL)
	}
	if cfg.TMDB.DetailsTTL != time.Hour {
		t.Errorf("TMDB.DetailsTTL = %v, want 1h", cfg.TMDB.DetailsTTL)
	}
	if cfg.Security.SignupAttempts != 3 || cfg.Security.SignupAttemptWindow != time.Hour {
		t.Errorf("signup lockout = %d/%v, want 3/1h", cfg.Security.SignupAttempts, cfg.Security.SignupAttemptWindow)
	}
	if cfg.Security.ActivationAttempts != 5 || cfg.Security.ActivationAttemptWindow != 15*time.Minute {
		t.Errorf("activation lockout = %d/%v, want 5/15m", cfg.Security.ActivationAttempts, cfg.Security.ActivationAttemptWindow)
	}
	if cfg.IsDevelopment() {
		t.Error("default environment should be production")
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("TMDB_RATE_LIMIT", "20")
	t.Setenv("TMDB_SEARCH_TTL", "2m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("FAVORITES_BACKEND", "memory")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development environment")
	}
	if cfg.TMDB.RateLimit != 20 {
		t.Errorf("TMDB.RateLimit = %d, want 20", cfg.TMDB.RateLimit)
	}
	if cfg.TMDB.SearchTTL != 2*time.Minute {
		t.Errorf("TMDB.SearchTTL = %v, want 2m", cfg.TMDB.SearchTTL)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Favorites.Backend != FavoritesBackendMemory {
		t.Errorf("Favorites.Backend = %q", cfg.Favorites.Backend)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 4100
tmdb:
  details_ttl: 2h
  cache_max_entries: 500
session:
  store: badger
  store_path: /tmp/sessions
security:
  cors_origins:
    - https://movies.example
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	// Env beats file.
	t.Setenv("PORT", "4200")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d, want env override 4200", cfg.Server.Port)
	}
	if cfg.TMDB.DetailsTTL != 2*time.Hour {
		t.Errorf("TMDB.DetailsTTL = %v, want 2h", cfg.TMDB.DetailsTTL)
	}
	if cfg.TMDB.CacheMaxEntries != 500 {
		t.Errorf("TMDB.CacheMaxEntries = %d, want 500", cfg.TMDB.CacheMaxEntries)
	}
	if cfg.Session.Store != SessionStoreBadger {
		t.Errorf("Session.Store = %q, want badger", cfg.Session.Store)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "https://movies.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	// Untouched defaults survive.
	if cfg.TMDB.RateLimit != 40 {
		t.Errorf("TMDB.RateLimit = %d, want default 40", cfg.TMDB.RateLimit)
	}
}

func TestLoadWithKoanf_MissingAPIKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TMDB_API_KEY", "")

	_, err := LoadWithKoanf()
	if err == nil || !strings.Contains(err.Error(), "TMDB_API_KEY") {
		t.Fatalf("expected TMDB_API_KEY error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		cfg.TMDB.APIKey = "k"
		cfg.Supabase.URL = "https://project.supabase.co"
		cfg.Supabase.AnonKey = "anon"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "PORT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "ENVIRONMENT"},
		{"bad tmdb url", func(c *Config) { c.TMDB.BaseURL = "ftp://api.themoviedb.org" }, "TMDB_BASE_URL"},
		{"zero rate limit", func(c *Config) { c.TMDB.RateLimit = 0 }, "TMDB_RATE_LIMIT"},
		{"supabase path", func(c *Config) { c.Supabase.URL = "https://x.supabase.co/rest" }, "SUPABASE_URL"},
		{"missing anon key", func(c *Config) { c.Supabase.AnonKey = "" }, "SUPABASE_ANON_KEY"},
		{"bad favorites backend", func(c *Config) { c.Favorites.Backend = "redis" }, "FAVORITES_BACKEND"},
		{"bad session store", func(c *Config) { c.Session.Store = "redis" }, "SESSION_STORE"},
		{"badger without path", func(c *Config) {
			c.Session.Store = SessionStoreBadger
			c.Session.StorePath = ""
		}, "SESSION_STORE_PATH"},
		{"short encryption key", func(c *Config) { c.Session.EncryptionKey = "c2hvcnQ=" }, "SESSION_ENCRYPTION_KEY"},
		{"valid encryption key", func(c *Config) {
			c.Session.EncryptionKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"rate limit disabled ignores values", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	if got := envTransformFunc("TMDB_API_KEY"); got != "tmdb.api_key" {
		t.Errorf("got %q", got)
	}
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("unmapped variable should be skipped, got %q", got)
	}
}
