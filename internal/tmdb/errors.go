// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package tmdb

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimitExceeded is returned when the outbound sliding window is
	// full. It is never retried and never served from stale cache.
	ErrRateLimitExceeded = errors.New("Rate limit exceeded. Please wait before making more requests.") //nolint:staticcheck // user-facing text

	// ErrUpstream wraps every failure to obtain a fresh TMDB response when
	// no stale value could be served instead.
	ErrUpstream = errors.New("tmdb upstream failure")
)

// UpstreamError is a non-2xx TMDB response. Status is the HTTP status;
// Code is TMDB's own status_code from the body, when present.
type UpstreamError struct {
	Status  int
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	code := e.Code
	if code == 0 {
		code = e.Status
	}
	return fmt.Sprintf("TMDB API Error %d: %s", code, e.Message)
}

// Is lets errors.Is(err, ErrUpstream) match an *UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Temporary reports whether the status suggests TMDB itself is unhealthy,
// as opposed to a bad request for a specific resource.
func (e *UpstreamError) Temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

// apiError is TMDB's error body.
type apiError struct {
	Success       bool   `json:"success"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
