// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrorKind is the closed set of identity provider failures handlers may
// react to. Provider text never leaves this file.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindAlreadyRegistered
	ErrKindPasswordTooShort
	ErrKindInvalidEmail
	ErrKindSignupDisabled
	ErrKindRateLimited
	ErrKindInvalidPhone
	ErrKindWeakPassword
	ErrKindPhoneTaken
	ErrKindEmailNotAllowed
	ErrKindInvalidCredentials
	ErrKindEmailNotConfirmed
)

var kindNames = map[ErrorKind]string{
	ErrKindUnknown:            "unknown",
	ErrKindAlreadyRegistered:  "already_registered",
	ErrKindPasswordTooShort:   "password_too_short",
	ErrKindInvalidEmail:       "invalid_email",
	ErrKindSignupDisabled:     "signup_disabled",
	ErrKindRateLimited:        "rate_limited",
	ErrKindInvalidPhone:       "invalid_phone",
	ErrKindWeakPassword:       "weak_password",
	ErrKindPhoneTaken:         "phone_taken",
	ErrKindEmailNotAllowed:    "email_not_allowed",
	ErrKindInvalidCredentials: "invalid_credentials",
	ErrKindEmailNotConfirmed:  "email_not_confirmed",
}

var kindMessages = map[ErrorKind]string{
	ErrKindUnknown:            "Registration failed. Please try again.",
	ErrKindAlreadyRegistered:  "An account with this email already exists. Please try logging in instead.",
	ErrKindPasswordTooShort:   "Password must be at least 6 characters long.",
	ErrKindInvalidEmail:       "Please enter a valid email address.",
	ErrKindSignupDisabled:     "Account registration is currently disabled.",
	ErrKindRateLimited:        "Too many emails sent. Please try again later.",
	ErrKindInvalidPhone:       "Please enter a valid phone number.",
	ErrKindWeakPassword:       "Please choose a stronger password.",
	ErrKindPhoneTaken:         "This phone number is already registered to another account.",
	ErrKindEmailNotAllowed:    "This email address is not allowed. Please try a different email address.",
	ErrKindInvalidCredentials: "Invalid email or password",
	ErrKindEmailNotConfirmed:  "Please verify your email before signing in.",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Message is the user-facing text for the kind.
func (k ErrorKind) Message() string {
	if s, ok := kindMessages[k]; ok {
		return s
	}
	return kindMessages[ErrKindUnknown]
}

// ErrProvider matches any *ProviderError with errors.Is.
var ErrProvider = errors.New("identity provider error")

// ProviderError is returned by IdentityProvider methods when the provider
// rejects a call or cannot be reached.
type ProviderError struct {
	Op     string
	Kind   ErrorKind
	Status int
	// Detail is the provider's own text. It is for logs and development
	// responses only.
	Detail string
	// minLength is set for ErrKindPasswordTooShort when the provider says.
	minLength int
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Detail, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// Message is the user-facing text for the failure.
func (e *ProviderError) Message() string {
	if e.Kind == ErrKindPasswordTooShort && e.minLength > 0 {
		return fmt.Sprintf("Password must be at least %d characters long.", e.minLength)
	}
	return e.Kind.Message()
}

// KindOf returns the ErrorKind of err, or ErrKindUnknown.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrKindUnknown
}

// providerBody covers both GoTrue error shapes: {code, error_code, msg}
// and the OAuth style {error, error_description}.
type providerBody struct {
	Code             int    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

var (
	statusPrefix   = regexp.MustCompile(`^response status code (\d+)(?::\s*)?`)
	minLengthMatch = regexp.MustCompile(`at least (\d+) characters`)
)

var messageKinds = map[string]ErrorKind{
	"user already registered":                  ErrKindAlreadyRegistered,
	"email address is already registered":      ErrKindAlreadyRegistered,
	"email already exists":                     ErrKindAlreadyRegistered,
	"a user with this email address has already been registered": ErrKindAlreadyRegistered,
	"password should be at least 6 characters": ErrKindPasswordTooShort,
	"password should be at least 8 characters": ErrKindPasswordTooShort,
	"invalid email":                            ErrKindInvalidEmail,
	"unable to validate email address: invalid format": ErrKindInvalidEmail,
	"signup not allowed":                       ErrKindSignupDisabled,
	"signups not allowed for this instance":    ErrKindSignupDisabled,
	"email rate limit exceeded":                ErrKindRateLimited,
	"phone number is invalid":                  ErrKindInvalidPhone,
	"invalid phone number format":              ErrKindInvalidPhone,
	"weak password":                            ErrKindWeakPassword,
	"phone number already registered":          ErrKindPhoneTaken,
	"invalid login credentials":                ErrKindInvalidCredentials,
	"email not confirmed":                      ErrKindEmailNotConfirmed,
}

var codeKinds = map[string]ErrorKind{
	"user_already_exists":        ErrKindAlreadyRegistered,
	"email_exists":               ErrKindAlreadyRegistered,
	"weak_password":              ErrKindWeakPassword,
	"signup_disabled":            ErrKindSignupDisabled,
	"email_provider_disabled":    ErrKindSignupDisabled,
	"over_email_send_rate_limit": ErrKindRateLimited,
	"over_request_rate_limit":    ErrKindRateLimited,
	"over_sms_send_rate_limit":   ErrKindRateLimited,
	"phone_exists":               ErrKindPhoneTaken,
	"email_address_invalid":      ErrKindEmailNotAllowed,
	"email_address_not_authorized": ErrKindEmailNotAllowed,
	"validation_failed":          ErrKindInvalidEmail,
	"invalid_credentials":        ErrKindInvalidCredentials,
	"invalid_grant":              ErrKindInvalidCredentials,
	"email_not_confirmed":        ErrKindEmailNotConfirmed,
}

// classify turns a gotrue-go error ("response status code N: <json>")
// into a *ProviderError. Errors that are not provider responses, such as
// transport failures, are kept as Err with ErrKindUnknown.
func classify(op string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	pe := &ProviderError{Op: op, Kind: ErrKindUnknown, Err: err}

	raw := err.Error()
	m := statusPrefix.FindStringSubmatch(raw)
	if m == nil {
		return pe
	}
	pe.Status, _ = strconv.Atoi(m[1])
	rest := strings.TrimSpace(raw[len(m[0]):])

	var body providerBody
	if rest != "" && json.Unmarshal([]byte(rest), &body) == nil {
		pe.Detail = firstNonEmpty(body.Msg, body.Message, body.ErrorDescription, body.Error)
	} else {
		pe.Detail = rest
	}

	pe.Kind = kindFor(pe.Detail, firstNonEmpty(body.ErrorCode, body.Error), pe.Status)
	if pe.Kind == ErrKindPasswordTooShort {
		if mm := minLengthMatch.FindStringSubmatch(pe.Detail); mm != nil {
			pe.minLength, _ = strconv.Atoi(mm[1])
		}
	}
	return pe
}

// kindFor prefers the exact provider message, then the dynamic
// "Email address ... is invalid" form, then the machine code, then status.
func kindFor(detail, code string, status int) ErrorKind {
	lower := strings.ToLower(strings.TrimSpace(detail))
	if k, ok := messageKinds[lower]; ok {
		return k
	}
	if strings.HasPrefix(lower, "email address") && strings.Contains(lower, "is invalid") {
		return ErrKindEmailNotAllowed
	}
	if strings.HasPrefix(lower, "password should be at least") {
		return ErrKindPasswordTooShort
	}
	if k, ok := codeKinds[code]; ok {
		return k
	}
	if status == 429 {
		return ErrKindRateLimited
	}
	return ErrKindUnknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
