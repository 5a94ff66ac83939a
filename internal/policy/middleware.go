// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package policy

import (
	"net"
	"net/http"

	"github.com/tomtom215/moviesavanna/internal/auth"
)

// DenyWriter renders a Deny decision.
type DenyWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// Middleware evaluates every request and applies the decision. It must run
// after auth.SessionMiddleware so the auth.Context is populated.
type Middleware struct {
	engine *Engine
	deny   DenyWriter
}

// NewMiddleware creates a middleware. A nil deny writes plain text.
func NewMiddleware(engine *Engine, deny DenyWriter) *Middleware {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, status int, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{engine: engine, deny: deny}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := m.engine.Evaluate(Request{
			Path:     r.URL.Path,
			Method:   r.Method,
			Query:    r.URL.Query(),
			ClientIP: ClientIP(r),
			Auth:     auth.FromContext(r.Context()),
		})

		switch d.Kind {
		case Redirect:
			http.Redirect(w, r, d.Location, d.Status)
		case Deny:
			m.deny(w, r, d.Status, d.Message)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// ClientIP returns the host part of r.RemoteAddr. Proxy headers are
// applied earlier by the router's RealIP middleware.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
