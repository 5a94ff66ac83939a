// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package policy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/metrics"
)

// Kind is the outcome of an evaluation.
type Kind int

const (
	Continue Kind = iota
	Redirect
	Deny
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	default:
		return "continue"
	}
}

// Reasons recorded with decisions. They are metric labels, so the set is
// closed.
const (
	ReasonAllowed              = "allowed"
	ReasonNotAuthenticated     = "not_authenticated"
	ReasonNotAdmin             = "not_admin"
	ReasonAdminPolicy          = "admin_policy"
	ReasonAlreadyAuthenticated = "already_authenticated"
	ReasonUnverified           = "unverified"
	ReasonLanding              = "landing"
	ReasonInternal             = "internal_error"
)

// Security event names.
const (
	EventUnauthorizedAdmin  = "UNAUTHORIZED_ADMIN_ACCESS"
	EventForbiddenAdmin     = "FORBIDDEN_ADMIN_ACCESS"
	EventUnauthorizedAccess = "UNAUTHORIZED_ACCESS_ATTEMPT"
	EventAuthenticatedRedir = "AUTHENTICATED_USER_REDIRECT"
	EventUnverifiedAccess   = "UNVERIFIED_USER_ACCESS"
)

// User-facing denial messages.
const (
	MessageAdminRequired = "Access Denied: You do not have permission to access this page. Admin privileges required."
	MessageAuthRequired  = "Authentication required. You must be logged in to access this resource."
	MessageInternal      = "An internal server error occurred. Please try again later."
)

// Decision is the result of Evaluate. Location is set for Redirect,
// Message for Deny; Status is set for both.
type Decision struct {
	Kind     Kind
	Status   int
	Location string
	Message  string
	Reason   string
}

func continueDecision() Decision {
	return Decision{Kind: Continue, Reason: ReasonAllowed}
}

func redirectTo(location, reason string) Decision {
	return Decision{Kind: Redirect, Status: http.StatusSeeOther, Location: location, Reason: reason}
}

func deny(status int, message, reason string) Decision {
	return Decision{Kind: Deny, Status: status, Message: message, Reason: reason}
}

// AdminChecker is the fine-grained check applied to authenticated admins.
// *authz.Enforcer satisfies it.
type AdminChecker interface {
	Allowed(ac auth.Context, path, method string) bool
}

// Engine evaluates requests against an ordered rule list.
type Engine struct {
	rules    []Rule
	admin    AdminChecker
	security *logging.SecurityLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces DefaultRules.
func WithRules(rules []Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithAdminChecker adds a policy check for admins on admin routes.
func WithAdminChecker(c AdminChecker) Option {
	return func(e *Engine) { e.admin = c }
}

// WithSecurityLogger sets where decision events are written.
func WithSecurityLogger(l *logging.SecurityLogger) Option {
	return func(e *Engine) { e.security = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	if e.security == nil {
		e.security = logging.NewSecurityLogger()
	}
	return e
}

// Evaluate classifies req and returns the decision. A panic inside
// evaluation becomes a 500 Deny.
func (e *Engine) Evaluate(req Request) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("path", req.Path).
				Str("panic", fmt.Sprint(r)).
				Msg("Route policy evaluation failed")
			d = deny(http.StatusInternalServerError, MessageInternal, ReasonInternal)
		}
		if d.Kind != Continue {
			metrics.RecordPolicyDecision(d.Kind.String(), d.Reason)
		}
	}()
	return e.evaluate(req)
}

func (e *Engine) evaluate(req Request) Decision {
	ac := req.Auth
	category := classify(e.rules, req.Path)

	switch {
	case category == Admin:
		return e.evaluateAdmin(req)

	case category == Protected && !ac.Authenticated:
		e.log(req, EventUnauthorizedAccess, "Not authenticated", false)
		if isAPIPath(req.Path) {
			return deny(http.StatusUnauthorized, MessageAuthRequired, ReasonNotAuthenticated)
		}
		return redirectTo(loginRedirect(req.Path), ReasonNotAuthenticated)

	case category == AuthOnly && ac.Authenticated:
		dest := localRedirect(req.Query.Get("redirectTo"), "/dashboard")
		e.log(req, EventAuthenticatedRedir, "Already authenticated", true)
		return redirectTo(dest, ReasonAlreadyAuthenticated)

	case category == Protected && !ac.IsVerified && !isVerificationExempt(req.Path):
		e.log(req, EventUnverifiedAccess, "Email not verified", false)
		return redirectTo("/verify-email?email="+encodeComponent(ac.Email), ReasonUnverified)

	case req.Path == "/" && ac.Authenticated:
		e.log(req, EventAuthenticatedRedir, "Landing page", true)
		return redirectTo("/dashboard", ReasonLanding)
	}

	return continueDecision()
}

func (e *Engine) evaluateAdmin(req Request) Decision {
	ac := req.Auth
	if !ac.Authenticated {
		e.log(req, EventUnauthorizedAdmin, "Not authenticated", false)
		return redirectTo(loginRedirect(req.Path), ReasonNotAuthenticated)
	}
	if !ac.IsAdmin {
		e.log(req, EventForbiddenAdmin, "Not admin user", false)
		return deny(http.StatusForbidden, MessageAdminRequired, ReasonNotAdmin)
	}
	if e.admin != nil {
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		if !e.admin.Allowed(ac, req.Path, method) {
			e.log(req, EventForbiddenAdmin, "Denied by admin policy", false)
			return deny(http.StatusForbidden, MessageAdminRequired, ReasonAdminPolicy)
		}
	}
	return continueDecision()
}

func (e *Engine) log(req Request, event, reason string, success bool) {
	e.security.LogEvent(&logging.SecurityEvent{
		Event:     event,
		UserID:    req.Auth.UserID,
		Email:     req.Auth.Email,
		IPAddress: req.ClientIP,
		Path:      req.Path,
		Reason:    reason,
		Success:   success,
	})
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api")
}
