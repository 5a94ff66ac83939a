// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/moviesavanna/internal/logging"
)

// ErrorResponse is the envelope for movie and operational endpoint failures.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code,omitempty"`
	// Details carries the internal error text in development only.
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DataResponse is the success envelope {success, data}.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// FormResult is the envelope for the account endpoints. Message is what a
// form shows; Errors maps fields to their first validation message.
type FormResult struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       interface{}       `json:"data,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	RedirectTo string            `json:"redirectTo,omitempty"`
}

// respondJSON writes v as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondCachedJSON writes a public, briefly cacheable response with an
// ETag. A matching If-None-Match is answered with 304.
func respondCachedJSON(w http.ResponseWriter, r *http.Request, v interface{}, maxAge time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	etag := `"` + generateETag(data) + `"`
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// generateETag creates a simple ETag from data using FNV-1a hash
func generateETag(data []byte) string {
	hash := uint32(2166136261)
	for _, b := range data {
		hash ^= uint32(b)
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// respondError writes an ErrorResponse. details is dropped unless it is
// non-empty; callers pass Handler.details(err) so it stays empty outside
// development.
func respondError(w http.ResponseWriter, status int, code, message, details string) {
	respondJSON(w, status, &ErrorResponse{
		Success:   false,
		Error:     message,
		ErrorCode: code,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

func respondForm(w http.ResponseWriter, status int, result *FormResult) {
	respondJSON(w, status, result)
}
