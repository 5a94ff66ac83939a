// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/moviesavanna/internal/config"
)

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}

	resp := decodeBody[struct {
		Success bool         `json:"success"`
		Data    HealthStatus `json:"data"`
	}](t, w)
	if !resp.Success || resp.Data.Status != "healthy" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Data.TMDBBreaker != "closed" {
		t.Errorf("tmdb_breaker = %q, want closed", resp.Data.TMDBBreaker)
	}

	live := fx.do(http.MethodGet, "/api/health/live", "", nil)
	if live.Code != http.StatusOK {
		t.Errorf("live status = %d", live.Code)
	}
}

func TestRouter_RequestIDPropagated(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-abc.123")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-abc.123" {
		t.Errorf("X-Request-ID = %q", got)
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/does-not-exist", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeBody[ErrorResponse](t, w); resp.ErrorCode != ErrCodeNotFound {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}

	w = fx.do(http.MethodDelete, "/api/movies/popular", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeBody[ErrorResponse](t, w); resp.ErrorCode != ErrCodeMethodNotAllowed {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	fx.do(http.MethodGet, "/api/health", "", nil)
	w := fx.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected default Go collectors in /metrics output")
	}
}

func TestRouter_AdminEndpoints(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)
	userCookie := fx.login(alice)
	adminCookie := fx.login(admin)

	tests := []struct {
		name   string
		method string
		path   string
		cookie *http.Cookie
		want   int
	}{
		{"cache stats anonymous", http.MethodGet, "/api/cache/stats", nil, http.StatusUnauthorized},
		{"cache stats user", http.MethodGet, "/api/cache/stats", userCookie, http.StatusForbidden},
		{"cache stats admin", http.MethodGet, "/api/cache/stats", adminCookie, http.StatusOK},
		{"cache clear user", http.MethodPost, "/api/cache/clear", userCookie, http.StatusForbidden},
		{"performance anonymous", http.MethodGet, "/api/admin/performance", nil, http.StatusUnauthorized},
		{"performance admin", http.MethodGet, "/api/admin/performance", adminCookie, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := fx.do(tt.method, tt.path, "", tt.cookie)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRouter_ClearCache(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)
	adminCookie := fx.login(admin)

	fx.do(http.MethodGet, "/api/movies/popular", "", nil)
	fx.do(http.MethodGet, "/api/movies/popular", "", nil)
	if got := fx.tmdb.hitCount("/movie/popular"); got != 1 {
		t.Fatalf("upstream hits before clear = %d, want 1", got)
	}

	w := fx.do(http.MethodPost, "/api/cache/clear", "", adminCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	fx.do(http.MethodGet, "/api/movies/popular", "", nil)
	if got := fx.tmdb.hitCount("/movie/popular"); got != 2 {
		t.Errorf("upstream hits after clear = %d, want 2", got)
	}
}

func TestRouter_ProtectedAPIDeniedAsJSON(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/recommendations", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeBody[ErrorResponse](t, w)
	if resp.ErrorCode != ErrCodeUnauthorized {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
	if !strings.HasPrefix(resp.Error, "Authentication required") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestRouter_ProtectedPageRedirectsToLogin(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/dashboard", "", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/login?redirectTo=%2Fdashboard" {
		t.Errorf("Location = %q", got)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t, func(c *config.Config) {
		c.Security.CORSOrigins = []string{"https://app.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/movies/popular", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q", got)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t, func(c *config.Config) {
		c.Security.RateLimitDisabled = false
		c.Security.RateLimitReqs = 2
		c.Security.RateLimitWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		if w := fx.do(http.MethodGet, "/api/movies/popular", "", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}

	w := fx.do(http.MethodGet, "/api/movies/popular", "", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if resp := decodeBody[ErrorResponse](t, w); resp.ErrorCode != ErrCodeRateLimited {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}

	// Health has its own, more permissive budget.
	if w := fx.do(http.MethodGet, "/api/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	t.Parallel()

	c := ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{CORSOrigins: []string{"*"}})
	if c.CORSAllowCredentials {
		t.Error("wildcard origin must not allow credentials")
	}
	if c.RateLimitRequests != 100 || c.RateLimitWindow != time.Minute {
		t.Errorf("defaults not applied: %d per %v", c.RateLimitRequests, c.RateLimitWindow)
	}

	c = ChiMiddlewareConfigFromSecurity(&config.SecurityConfig{
		CORSOrigins:     []string{"https://a.example"},
		RateLimitReqs:   7,
		RateLimitWindow: time.Second,
	})
	if !c.CORSAllowCredentials || c.RateLimitRequests != 7 || c.RateLimitWindow != time.Second {
		t.Errorf("config = %+v", c)
	}
}
