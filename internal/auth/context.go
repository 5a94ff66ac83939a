// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import "context"

// Context is the per-request auth state. It is computed fresh for every
// request and never persisted. The zero value is unauthenticated.
type Context struct {
	Authenticated bool
	UserID        string
	Email         string
	IsAdmin       bool
	IsVerified    bool

	// User is the provider record behind the flags, nil when unauthenticated.
	User *User
	// SessionID is the server-side session the request arrived with.
	SessionID string
}

type contextKey string

const authContextKey contextKey = "auth-context"

// WithContext returns ctx carrying ac.
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// FromContext returns the auth state stored by SessionMiddleware, or the
// zero Context if none was stored.
func FromContext(ctx context.Context) Context {
	ac, _ := ctx.Value(authContextKey).(Context)
	return ac
}
