// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/metrics"
)

// SessionMiddlewareConfig holds configuration for the session middleware.
type SessionMiddlewareConfig struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// SessionTTL is the server-side session lifetime.
	SessionTTL time.Duration

	// RefreshWindow is how close to access token expiry a refresh is made.
	RefreshWindow time.Duration

	// CookiePath is the path for the session cookie.
	CookiePath string

	// CookieSecure sets the Secure flag on the cookie.
	CookieSecure bool
}

// DefaultSessionMiddlewareConfig returns sensible defaults.
func DefaultSessionMiddlewareConfig() *SessionMiddlewareConfig {
	return &SessionMiddlewareConfig{
		CookieName:    "ms_session",
		SessionTTL:    7 * 24 * time.Hour,
		RefreshWindow: 60 * time.Second,
		CookiePath:    "/",
		CookieSecure:  true,
	}
}

// SessionMiddleware loads the server-side session for each request and
// resolves it to a Context.
type SessionMiddleware struct {
	store    SessionStore
	resolver *Resolver
	identity IdentityProvider
	config   *SessionMiddlewareConfig
	now      func() time.Time
}

// NewSessionMiddleware creates a new session middleware.
func NewSessionMiddleware(store SessionStore, resolver *Resolver, identity IdentityProvider, config *SessionMiddlewareConfig) *SessionMiddleware {
	if config == nil {
		config = DefaultSessionMiddlewareConfig()
	}
	if config.RefreshWindow <= 0 {
		config.RefreshWindow = 60 * time.Second
	}
	return &SessionMiddleware{
		store:    store,
		resolver: resolver,
		identity: identity,
		config:   config,
		now:      time.Now,
	}
}

// Authenticate resolves the request's auth state once and stores it in
// the request context. Requests without a usable session continue with
// the zero Context.
func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		session := m.loadSession(w, r)
		if session == nil {
			next.ServeHTTP(w, r.WithContext(WithContext(ctx, Context{})))
			return
		}

		m.refreshIfExpiring(ctx, session)

		ac := m.resolver.Resolve(ctx, session.AccessToken)
		ac.SessionID = session.ID
		next.ServeHTTP(w, r.WithContext(WithContext(ctx, ac)))
	})
}

func (m *SessionMiddleware) loadSession(w http.ResponseWriter, r *http.Request) *Session {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			m.ClearSessionCookie(w)
		} else {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Session lookup error")
		}
		return nil
	}
	return session
}

// refreshIfExpiring exchanges the refresh token when the access token is
// within RefreshWindow of expiry. Failures leave the session untouched;
// the resolver then rejects the stale token.
func (m *SessionMiddleware) refreshIfExpiring(ctx context.Context, session *Session) {
	exp := accessTokenExpiry(session.AccessToken)
	if exp.IsZero() {
		exp = session.TokenExpiry
	}
	if exp.IsZero() || exp.Sub(m.now()) > m.config.RefreshWindow {
		return
	}

	tokens, err := m.identity.Refresh(ctx, session.RefreshToken)
	metrics.RecordAuthEvent("token_refresh", err == nil)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Token refresh failed")
		return
	}

	session.SetTokens(tokens)
	session.LastAccessedAt = m.now()
	if err := m.store.Update(ctx, session); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to store refreshed session")
	}
}

// accessTokenExpiry reads exp without verifying the signature. It only
// schedules refreshes; identity always comes from the provider.
func accessTokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// StartSession stores tokens under a new session and sets the cookie.
func (m *SessionMiddleware) StartSession(ctx context.Context, w http.ResponseWriter, userID string, tokens *Tokens) (*Session, error) {
	session := NewSession(userID, tokens, m.config.SessionTTL)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}
	m.SetSessionCookie(w, session)
	return session, nil
}

// CurrentSession returns the session named by the request cookie.
func (m *SessionMiddleware) CurrentSession(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(r.Context(), cookie.Value)
}

// EndSession deletes the request's session and clears the cookie.
func (m *SessionMiddleware) EndSession(w http.ResponseWriter, r *http.Request) error {
	defer m.ClearSessionCookie(w)

	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return m.store.Delete(r.Context(), cookie.Value)
}

// SetSessionCookie sets the session cookie on the response.
func (m *SessionMiddleware) SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    session.ID,
		Path:     m.config.CookiePath,
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (m *SessionMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     m.config.CookiePath,
		MaxAge:   -1,
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Store returns the backing session store.
func (m *SessionMiddleware) Store() SessionStore { return m.store }
