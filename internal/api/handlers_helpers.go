// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// maxPage is TMDB's upper page limit.
const maxPage = 1000

var errEmptyBody = errors.New("empty request body")

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errEmptyBody
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

// getIntParam extracts an integer query parameter with a default value.
// ok is false when the parameter is present but not an integer.
func getIntParam(r *http.Request, key string, defaultValue int) (value int, ok bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultValue, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue, false
	}
	return n, true
}

// getFloatParam extracts a float query parameter, falling back to
// defaultValue when absent or malformed.
func getFloatParam(r *http.Request, key string, defaultValue float64) float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// pageParam reads ?page=, accepting 1..maxPage.
func pageParam(r *http.Request) (int, bool) {
	page, ok := getIntParam(r, "page", 1)
	if !ok || page < 1 || page > maxPage {
		return 0, false
	}
	return page, true
}

// parseID parses a positive integer path value.
func parseID(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseCommaSeparatedInts parses a comma-separated string into a slice of integers
func parseCommaSeparatedInts(value string) []int {
	if value == "" {
		return nil
	}

	var result []int
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if num, err := strconv.Atoi(trimmed); err == nil {
			result = append(result, num)
		}
	}
	return result
}

// joinInts is the inverse of parseCommaSeparatedInts.
func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
