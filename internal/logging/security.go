// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package logging

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an audit record for authentication and route-policy
// activity. Identifying fields are sanitized before they are written.
type SecurityEvent struct {
	// Event is an upper-snake name such as SIGNUP_SUCCESS or FORBIDDEN_ADMIN_ACCESS.
	Event     string
	UserID    string
	Email     string
	IPAddress string
	Path      string
	Reason    string
	Success   bool
	Error     string
	Details   map[string]string
}

// SecurityLogger writes SecurityEvents under the "security" component.
type SecurityLogger struct {
	logger zerolog.Logger
}

func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("security")}
}

// NewSecurityLoggerWithLogger is used by tests to capture audit output.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of the library
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "security").Logger()}
}

// LogEvent writes the event. Failed events are logged at warn level.
func (l *SecurityLogger) LogEvent(ev *SecurityEvent) {
	e := l.logger.Info()
	status := "success"
	if !ev.Success {
		e = l.logger.Warn()
		status = "failed"
	}
	e = e.Str("event", ev.Event).Str("status", status)

	if ev.UserID != "" {
		e = e.Str("user_id", SanitizeUserID(ev.UserID))
	}
	if ev.Email != "" {
		e = e.Str("email", SanitizeEmail(ev.Email))
	}
	if ev.IPAddress != "" {
		e = e.Str("ip", ev.IPAddress)
	}
	if ev.Path != "" {
		e = e.Str("path", ev.Path)
	}
	if ev.Reason != "" {
		e = e.Str("reason", ev.Reason)
	}
	if ev.Error != "" && !ev.Success {
		e = e.Str("error", SanitizeError(ev.Error))
	}
	for k, v := range ev.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}
	e.Msg(ev.Event)
}

// SanitizeToken keeps the first and last four characters of long values.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUserID masks all but the edges of a user ID.
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeEmail keeps two characters of the local part and the domain.
// "john.doe@example.com" becomes "jo***@example.com".
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

var sensitiveErrorWords = []string{"password", "secret", "token", "key", "bearer", "authorization", "cookie"}

// SanitizeError replaces messages mentioning credentials with a generic
// text and truncates the rest to 200 bytes.
func SanitizeError(msg string) string {
	lower := strings.ToLower(msg)
	for _, w := range sensitiveErrorWords {
		if strings.Contains(lower, w) {
			return "authentication error"
		}
	}
	return truncate(msg, 200)
}

var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"password":      true,
	"api_key":       true,
	"authorization": true,
	"cookie":        true,
	"session_id":    true,
}

// SanitizeValue masks a detail value based on its key, or on whether the
// value looks like an email address.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return value
}

// RedactQueryParam replaces the value of every param in rawURL's query
// with [REDACTED], leaving the rest of the URL untouched. TMDB URLs carry
// the API key as api_key and must never be logged verbatim. Input that
// does not parse as a URL is redacted entirely.
func RedactQueryParam(rawURL, param string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[REDACTED]"
	}
	if u.RawQuery == "" {
		return rawURL
	}

	prefix := param + "="
	parts := strings.Split(u.RawQuery, "&")
	for i, part := range parts {
		if part == param || strings.HasPrefix(part, prefix) {
			parts[i] = prefix + "[REDACTED]"
		}
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
