// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package validation

import "strings"

// LoginRequest is the sign-in form.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	Password   string `json:"password" validate:"required,min=6,max=100,password_strength"`
	RememberMe bool   `json:"rememberMe"`
}

// Normalize trims and lowercases the email.
func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

// SignupRequest is the registration form.
type SignupRequest struct {
	FirstName       string `json:"firstName" validate:"required,min=2,max=50"`
	LastName        string `json:"lastName" validate:"required,min=2,max=50"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=100,password_strength"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	TermsAccepted   bool   `json:"termsAccepted" validate:"eq=true"`
}

// Normalize trims names and phone and lowercases the email.
func (r *SignupRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
}

// ActivationRequest carries the code from the activation email link.
type ActivationRequest struct {
	Code string `json:"code" validate:"required,activation_code"`
}

func (r *ActivationRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

// ToggleFavoriteRequest is the body of POST /api/favorites/toggle.
type ToggleFavoriteRequest struct {
	MovieID          int      `json:"movie_id" validate:"required,gt=0"`
	MovieTitle       string   `json:"movie_title" validate:"required"`
	MoviePoster      *string  `json:"movie_poster,omitempty"`
	MovieReleaseDate *string  `json:"movie_release_date,omitempty"`
	MovieRating      *float64 `json:"movie_rating,omitempty"`
}

func (r *ToggleFavoriteRequest) Normalize() {
	r.MovieTitle = strings.TrimSpace(r.MovieTitle)
}
