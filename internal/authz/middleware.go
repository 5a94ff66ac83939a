// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package authz

import (
	"net/http"

	"github.com/tomtom215/moviesavanna/internal/auth"
)

// DenyFunc writes the response for a refused request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware enforces the policy for the request path and method.
type Middleware struct {
	enforcer *Enforcer
	deny     DenyFunc
}

// NewMiddleware creates a new authorization middleware. A nil deny writes
// a plain-text error.
func NewMiddleware(enforcer *Enforcer, deny DenyFunc) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{enforcer: enforcer, deny: deny}
}

// AuthorizeRequest answers 401 for anonymous callers and 403 for callers
// whose role lacks the permission.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac := auth.FromContext(r.Context())
		if m.enforcer.Allowed(ac, r.URL.Path, r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if !ac.Authenticated {
			m.deny(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		m.deny(w, r, http.StatusForbidden, "Forbidden: insufficient permissions")
	})
}
