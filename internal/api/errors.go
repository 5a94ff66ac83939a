// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

// Error codes for API responses
const (
	ErrCodeInvalidPage      = "INVALID_PAGE"
	ErrCodeMissingQuery     = "MISSING_QUERY"
	ErrCodeQueryTooShort    = "QUERY_TOO_SHORT"
	ErrCodeInvalidID        = "INVALID_ID"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeSearchFailed     = "SEARCH_FAILED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Messages shared by more than one handler.
const (
	msgAuthRequired   = "Authentication required"
	msgInternalError  = "Internal server error"
	msgInvalidMovieID = "Invalid movie ID"
	msgInvalidPage    = "Page must be between 1 and 1000"
)

// tmdbFailure maps a movie metadata error to a status and code. fallback
// is the code used for generic upstream failures.
func tmdbFailure(err error, fallback string) (int, string) {
	if errors.Is(err, tmdb.ErrRateLimitExceeded) {
		return http.StatusTooManyRequests, ErrCodeRateLimited
	}
	var upErr *tmdb.UpstreamError
	if errors.As(err, &upErr) && upErr.Status == http.StatusNotFound {
		return http.StatusNotFound, ErrCodeNotFound
	}
	return http.StatusInternalServerError, fallback
}

// errorCodeForStatus is used where only a status is known, such as a
// policy or authorization deny.
func errorCodeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrCodeMethodNotAllowed
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	default:
		return ErrCodeInternalError
	}
}
