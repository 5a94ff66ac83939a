// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/metrics"
	"github.com/tomtom215/moviesavanna/internal/policy"
	"github.com/tomtom215/moviesavanna/internal/validation"
)

// Account flow messages.
const (
	msgTermsRequired      = "You must accept the terms and conditions to continue."
	msgVerifyEmail        = "Please check your email to verify your account."
	msgSignupWelcome      = "Account created successfully! Welcome to MovieSavanna!"
	msgSignupFailed       = "Registration failed. Please try again."
	msgInvalidForm        = "Please correct the errors in the form."
	msgLoginSuccess       = "Login successful!"
	msgLoginFailed        = "An error occurred during login"
	msgActivated          = "Email verified successfully! Your account is now activated. Please sign in to continue."
	msgAlreadyActivated   = "Your account is already activated."
	msgResendUnauthorized = "You must be logged in to resend activation email."
	msgResendFailed       = "Failed to resend activation email. Please try again."
	msgResendSent         = "Activation email sent successfully!"
	msgActivationRequired = "activation_required"
)

// Security event names for the account flows.
const (
	eventSignupAttempt      = "SIGNUP_ATTEMPT"
	eventSignupSuccess      = "SIGNUP_SUCCESS"
	eventSignupFailed       = "SIGNUP_FAILED"
	eventSignupRateLimited  = "SIGNUP_RATE_LIMIT_EXCEEDED"
	eventLoginSuccess       = "LOGIN_SUCCESS"
	eventLoginFailed        = "LOGIN_FAILED"
	eventActivationSuccess  = "ACTIVATION_SUCCESS"
	eventActivationFailed   = "ACTIVATION_VALIDATION_FAILED"
	eventActivationLimited  = "ACTIVATION_RATE_LIMIT_EXCEEDED"
	eventResendSuccess      = "RESEND_ACTIVATION_SUCCESS"
	eventResendFailed       = "RESEND_ACTIVATION_FAILED"
	eventLogoutSuccess      = "USER_LOGOUT_SUCCESS"
	eventLogoutFailed       = "LOGOUT_ERROR"
	eventLogoutUnexpected   = "LOGOUT_UNEXPECTED_ERROR"
	eventAlreadyVerified    = "ACTIVATION_ATTEMPT_ALREADY_VERIFIED"
	eventResendUnauthorized = "RESEND_ACTIVATION_UNAUTHORIZED"
)

// SignupData is returned on a successful signup.
type SignupData struct {
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone,omitempty"`
	UID       string    `json:"uid"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginData is returned on a successful login.
type LoginData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := policy.ClientIP(r)

	var req validation.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondForm(w, http.StatusBadRequest, &FormResult{Message: msgInvalidForm})
		return
	}
	req.Normalize()

	if !req.TermsAccepted {
		respondForm(w, http.StatusBadRequest, &FormResult{Message: msgTermsRequired})
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondForm(w, http.StatusBadRequest, &FormResult{Message: verr.First(), Errors: verr.FieldErrors()})
		return
	}

	key := req.Email + ":" + ip
	if check := h.signupAttempts.Check(key); !check.Allowed {
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventSignupRateLimited,
			Email:     req.Email,
			IPAddress: ip,
			Details:   map[string]string{"attempts": fmt.Sprint(check.Attempts)},
		})
		metrics.RecordRateLimitRejection()
		respondForm(w, http.StatusTooManyRequests, &FormResult{
			Message: fmt.Sprintf("Too many signup attempts. Please try again in %d minutes.", check.RetryAfterMinutes()),
		})
		return
	}

	h.security.LogEvent(&logging.SecurityEvent{Event: eventSignupAttempt, Email: req.Email, IPAddress: ip, Success: true})

	result, err := h.identity.SignUp(ctx, auth.SignUpParams{
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	metrics.RecordAuthEvent("signup", err == nil)
	if err != nil {
		h.signupAttempts.RecordFailure(key)
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventSignupFailed,
			Email:     req.Email,
			IPAddress: ip,
			Reason:    auth.KindOf(err).String(),
			Error:     err.Error(),
		})
		status, msg := h.signupFailure(err)
		respondForm(w, status, &FormResult{Message: msg})
		return
	}

	h.signupAttempts.Clear(key)

	user := result.User
	if user == nil {
		user = &auth.User{Email: req.Email}
	}
	data := &SignupData{
		Email:     user.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		UID:       user.ID,
		Provider:  user.Provider(),
		CreatedAt: user.CreatedAt,
	}

	message := msgVerifyEmail
	if !result.VerificationRequired() {
		message = msgSignupWelcome
		if _, err := h.sessions.StartSession(ctx, w, user.ID, result.Tokens); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Failed to start session after signup")
		}
	}

	h.security.LogEvent(&logging.SecurityEvent{
		Event:     eventSignupSuccess,
		UserID:    user.ID,
		Email:     req.Email,
		IPAddress: ip,
		Success:   true,
		Details:   map[string]string{"provider": data.Provider},
	})
	respondForm(w, http.StatusOK, &FormResult{Success: true, Message: message, Data: data})
}

// signupFailure maps a provider error onto a status and message.
func (h *Handler) signupFailure(err error) (int, string) {
	var pe *auth.ProviderError
	if !errors.As(err, &pe) || pe.Kind == auth.ErrKindUnknown {
		if d := h.details(err); d != "" {
			return http.StatusInternalServerError, "Registration failed: " + d
		}
		return http.StatusInternalServerError, msgSignupFailed
	}
	switch pe.Kind {
	case auth.ErrKindRateLimited:
		return http.StatusTooManyRequests, pe.Message()
	case auth.ErrKindAlreadyRegistered, auth.ErrKindPhoneTaken:
		return http.StatusConflict, pe.Message()
	default:
		return http.StatusBadRequest, pe.Message()
	}
}

// Login handles POST /api/auth/login. On success the provider tokens are
// stored server-side and only the session cookie reaches the browser.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := policy.ClientIP(r)

	var req validation.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondForm(w, http.StatusBadRequest, &FormResult{Message: msgInvalidForm})
		return
	}
	req.Normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondForm(w, http.StatusBadRequest, &FormResult{Message: verr.First(), Errors: verr.FieldErrors()})
		return
	}

	user, tokens, err := h.identity.SignIn(ctx, req.Email, req.Password)
	metrics.RecordAuthEvent("login", err == nil)
	if err != nil {
		kind := auth.KindOf(err)
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventLoginFailed,
			Email:     req.Email,
			IPAddress: ip,
			Reason:    kind.String(),
			Error:     err.Error(),
		})
		switch kind {
		case auth.ErrKindEmailNotConfirmed:
			respondForm(w, http.StatusForbidden, &FormResult{
				Message: kind.Message(),
				Data:    map[string]string{"status": msgActivationRequired, "email": req.Email},
			})
		case auth.ErrKindInvalidCredentials:
			respondForm(w, http.StatusUnauthorized, &FormResult{Message: kind.Message()})
		case auth.ErrKindRateLimited:
			respondForm(w, http.StatusTooManyRequests, &FormResult{Message: kind.Message()})
		default:
			respondForm(w, http.StatusInternalServerError, &FormResult{Message: msgLoginFailed})
		}
		return
	}

	if _, err := h.sessions.StartSession(ctx, w, user.ID, tokens); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to create session")
		respondForm(w, http.StatusInternalServerError, &FormResult{Message: msgLoginFailed})
		return
	}

	h.security.LogEvent(&logging.SecurityEvent{
		Event:     eventLoginSuccess,
		UserID:    user.ID,
		Email:     user.Email,
		IPAddress: ip,
		Success:   true,
	})
	respondForm(w, http.StatusOK, &FormResult{
		Success: true,
		Message: msgLoginSuccess,
		Data: &LoginData{
			FirstName: user.MetadataString("first_name"),
			LastName:  user.MetadataString("last_name"),
		},
	})
}

// VerifyActivation handles POST /api/auth/verify. The provider confirms
// the address when the emailed link is opened; this endpoint only checks
// the code's shape and points the user at the next page.
func (h *Handler) VerifyActivation(w http.ResponseWriter, r *http.Request) {
	ip := policy.ClientIP(r)
	ac := auth.FromContext(r.Context())

	if ac.Authenticated && ac.IsVerified {
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventAlreadyVerified,
			UserID:    ac.UserID,
			IPAddress: ip,
			Success:   true,
		})
		respondForm(w, http.StatusOK, &FormResult{Success: true, Message: msgAlreadyActivated, RedirectTo: "/dashboard"})
		return
	}

	if check := h.activationAttempts.Check(ip); !check.Allowed {
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventActivationLimited,
			IPAddress: ip,
			Details:   map[string]string{"attempts": fmt.Sprint(check.Attempts)},
		})
		metrics.RecordRateLimitRejection()
		respondForm(w, http.StatusTooManyRequests, &FormResult{
			Message: fmt.Sprintf("Too many activation attempts. Please try again in %d minutes.", check.RetryAfterMinutes()),
		})
		return
	}

	var req validation.ActivationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondForm(w, http.StatusBadRequest, &FormResult{Message: msgInvalidForm})
		return
	}
	req.Normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		if req.Code != "" {
			h.activationAttempts.RecordFailure(ip)
		}
		h.security.LogEvent(&logging.SecurityEvent{Event: eventActivationFailed, IPAddress: ip, Reason: verr.Error()})
		metrics.RecordAuthEvent("activation", false)
		respondForm(w, http.StatusBadRequest, &FormResult{Message: verr.First(), Errors: verr.FieldErrors()})
		return
	}

	h.activationAttempts.Clear(ip)
	metrics.RecordAuthEvent("activation", true)
	h.security.LogEvent(&logging.SecurityEvent{Event: eventActivationSuccess, IPAddress: ip, Success: true})
	respondForm(w, http.StatusOK, &FormResult{Success: true, Message: msgActivated, RedirectTo: "/login"})
}

// ResendVerification handles POST /api/auth/resend-verification for a
// signed-in, unverified user.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	ip := policy.ClientIP(r)
	ac := auth.FromContext(r.Context())

	if !ac.Authenticated {
		h.security.LogEvent(&logging.SecurityEvent{Event: eventResendUnauthorized, IPAddress: ip})
		respondForm(w, http.StatusUnauthorized, &FormResult{Message: msgResendUnauthorized})
		return
	}
	if ac.IsVerified {
		respondForm(w, http.StatusBadRequest, &FormResult{Message: msgAlreadyActivated})
		return
	}

	err := h.identity.ResendActivation(r.Context(), ac.Email)
	metrics.RecordAuthEvent("resend_activation", err == nil)
	if err != nil {
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventResendFailed,
			UserID:    ac.UserID,
			Email:     ac.Email,
			IPAddress: ip,
			Error:     err.Error(),
		})
		respondForm(w, http.StatusInternalServerError, &FormResult{Message: msgResendFailed})
		return
	}

	h.security.LogEvent(&logging.SecurityEvent{
		Event:     eventResendSuccess,
		UserID:    ac.UserID,
		Email:     ac.Email,
		IPAddress: ip,
		Success:   true,
	})
	respondForm(w, http.StatusOK, &FormResult{Success: true, Message: msgResendSent})
}

// Logout handles GET and POST /logout: provider sign-out, then the local
// session and cookie are dropped, then 303 to the landing page. The local
// session is dropped even when the provider call fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := policy.ClientIP(r)
	ac := auth.FromContext(ctx)
	outcome := "success"

	if session, err := h.sessions.CurrentSession(r); err == nil && session.AccessToken != "" {
		if err := h.identity.SignOut(ctx, session.AccessToken); err != nil {
			outcome = "failed"
			h.security.LogEvent(&logging.SecurityEvent{
				Event:     eventLogoutFailed,
				UserID:    ac.UserID,
				IPAddress: ip,
				Error:     err.Error(),
			})
		}
	} else if err != nil && !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
		outcome = "error"
		logging.Ctx(ctx).Error().Err(err).Msg("Session lookup failed during logout")
	}

	if err := h.sessions.EndSession(w, r); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		outcome = "error"
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventLogoutUnexpected,
			UserID:    ac.UserID,
			IPAddress: ip,
			Error:     err.Error(),
		})
	}

	metrics.RecordAuthEvent("logout", outcome == "success")
	if outcome == "success" {
		h.security.LogEvent(&logging.SecurityEvent{
			Event:     eventLogoutSuccess,
			UserID:    ac.UserID,
			Email:     ac.Email,
			IPAddress: ip,
			Success:   true,
		})
	}

	http.Redirect(w, r, "/?logout="+outcome, http.StatusSeeOther)
}
