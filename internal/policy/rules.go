// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package policy decides, per request, whether the caller may reach a
// route, must be redirected, or is refused.
//
// Routes are classified by an ordered list of prefix rules. Evaluate is a
// pure function of the request and the resolved auth.Context; it returns a
// Decision value and never panics. Middleware applies the decision.
package policy

import (
	"net/url"
	"strings"

	"github.com/tomtom215/moviesavanna/internal/auth"
)

// Category classifies a route.
type Category int

const (
	// Public routes have no access requirements.
	Public Category = iota
	// Admin routes require an authenticated admin.
	Admin
	// Protected routes require an authenticated, verified user.
	Protected
	// AuthOnly routes (login, signup) are for anonymous callers only.
	AuthOnly
)

func (c Category) String() string {
	switch c {
	case Admin:
		return "admin"
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth_only"
	default:
		return "public"
	}
}

// Rule maps a path prefix to a category.
type Rule struct {
	Prefix   string
	Category Category
}

// DefaultRules returns the route table. Order matters: the first matching
// prefix classifies the path.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/admin", Category: Admin},
		{Prefix: "/dashboard", Category: Protected},
		{Prefix: "/logout", Category: Protected},
		{Prefix: "/api/recommendations", Category: Protected},
		{Prefix: "/login", Category: AuthOnly},
		{Prefix: "/signup", Category: AuthOnly},
	}
}

// verificationExempt lists paths an unverified user may still reach.
var verificationExempt = []string{
	"/verify-email",
	"/logout",
	"/api/auth/verify",
	"/api/auth/resend-verification",
}

func classify(rules []Rule, path string) Category {
	for _, r := range rules {
		if strings.HasPrefix(path, r.Prefix) {
			return r.Category
		}
	}
	return Public
}

func isVerificationExempt(path string) bool {
	for _, p := range verificationExempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Request is the input to Evaluate.
type Request struct {
	Path     string
	Method   string
	Query    url.Values
	ClientIP string
	Auth     auth.Context
}

// encodeComponent escapes s for use as a query value, encoding spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// localRedirect returns target when it is a same-site absolute path and
// fallback otherwise.
func localRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return fallback
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

func loginRedirect(path string) string {
	return "/login?redirectTo=" + encodeComponent(path)
}
