// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/tomtom215/moviesavanna/internal/favorites"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

func TestPopularMovies(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/movies/popular?page=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := fx.tmdb.lastQuery("/movie/popular").Get("page"); got != "2" {
		t.Errorf("upstream page = %q, want 2", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", got)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("expected ETag header")
	}

	resp := decodeBody[MovieListResponse](t, w)
	if !resp.Success || resp.Data == nil || len(resp.Data.Results) != 3 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.CacheStats.Misses != 1 {
		t.Errorf("cache_stats.misses = %d, want 1", resp.CacheStats.Misses)
	}
}

func TestPopularMovies_InvalidPage(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	for _, page := range []string{"0", "1001", "abc", "-3"} {
		w := fx.do(http.MethodGet, "/api/movies/popular?page="+page, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("page=%s: status = %d", page, w.Code)
			continue
		}
		if resp := decodeBody[ErrorResponse](t, w); resp.ErrorCode != ErrCodeInvalidPage {
			t.Errorf("page=%s: error_code = %q", page, resp.ErrorCode)
		}
	}
	if fx.tmdb.hitCount("/movie/popular") != 0 {
		t.Error("invalid pages must not reach TMDB")
	}
}

func TestSearchMovies(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	tests := []struct {
		name     string
		query    string
		wantCode int
		wantErr  string
	}{
		{"missing query", "/api/movies/search", http.StatusBadRequest, ErrCodeMissingQuery},
		{"blank query", "/api/movies/search?q=%20%20", http.StatusBadRequest, ErrCodeMissingQuery},
		{"short query", "/api/movies/search?q=a", http.StatusBadRequest, ErrCodeQueryTooShort},
		{"bad page", "/api/movies/search?q=matrix&page=0", http.StatusBadRequest, ErrCodeInvalidPage},
		{"ok", "/api/movies/search?q=the+matrix", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := fx.do(http.MethodGet, tt.query, "", nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantErr != "" {
				if resp := decodeBody[ErrorResponse](t, w); resp.ErrorCode != tt.wantErr {
					t.Errorf("error_code = %q, want %q", resp.ErrorCode, tt.wantErr)
				}
			}
		})
	}

	if got := fx.tmdb.lastQuery("/search/movie").Get("query"); got != "the matrix" {
		t.Errorf("upstream query = %q", got)
	}
}

func TestMovieDetails(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/movies/550", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := decodeBody[struct {
		Success bool             `json:"success"`
		Data    MovieDetailsData `json:"data"`
	}](t, w)
	if resp.Data.Details == nil || resp.Data.Details.Title != "Fight Club" {
		t.Fatalf("details = %+v", resp.Data.Details)
	}
	if resp.Data.Credits == nil || len(resp.Data.Credits.Cast) != 1 {
		t.Errorf("credits = %+v", resp.Data.Credits)
	}
	if resp.Data.Videos == nil || len(resp.Data.Videos.Results) != 1 {
		t.Errorf("videos = %+v", resp.Data.Videos)
	}
	if resp.Data.PosterURL != testImageBase+"/w500/poster.jpg" {
		t.Errorf("poster_url = %q", resp.Data.PosterURL)
	}
	if resp.Data.BackdropURL != testImageBase+"/original/backdrop.jpg" {
		t.Errorf("backdrop_url = %q", resp.Data.BackdropURL)
	}
}

func TestMovieDetails_Errors(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/movies/abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decodeBody[ErrorResponse](t, w); resp.ErrorCode != ErrCodeInvalidID || resp.Error != msgInvalidMovieID {
		t.Errorf("response = %+v", resp)
	}

	w = fx.do(http.MethodGet, "/api/movies/999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeBody[ErrorResponse](t, w)
	if resp.ErrorCode != ErrCodeNotFound {
		t.Errorf("error_code = %q", resp.ErrorCode)
	}
	if resp.Details != "" {
		t.Errorf("details leaked outside development: %q", resp.Details)
	}
}

func TestSimilarMovies_ExcludesFavorites(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)
	cookie := fx.login(alice)

	if _, err := fx.favorites.Add(context.Background(), alice.id, favorites.Movie{ID: 551, Title: "Movie 551"}); err != nil {
		t.Fatal(err)
	}

	anon := decodeBody[struct {
		Data tmdb.MovieList `json:"data"`
	}](t, fx.do(http.MethodGet, "/api/movies/550/similar", "", nil))
	if len(anon.Data.Results) != 2 {
		t.Fatalf("anonymous results = %d, want 2", len(anon.Data.Results))
	}

	signedIn := decodeBody[struct {
		Data tmdb.MovieList `json:"data"`
	}](t, fx.do(http.MethodGet, "/api/movies/550/similar", "", cookie))
	if len(signedIn.Data.Results) != 1 || signedIn.Data.Results[0].ID != 807 {
		t.Errorf("signed-in results = %+v", signedIn.Data.Results)
	}
}

func TestSimilarMovies_UpstreamFailureIsEmpty(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/movies/999/similar", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"results":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestDiscoverMovies(t *testing.T) {
	t.Parallel()
	fx := newAPIFixture(t)

	w := fx.do(http.MethodGet, "/api/movies/discover?with_genres=28,+x,12&sort_by=vote_average.desc&vote_count.gte=300&vote_average.gte=6.5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	q := fx.tmdb.lastQuery("/discover/movie")
	if got := q.Get("with_genres"); got != "28,12" {
		t.Errorf("with_genres = %q, want 28,12", got)
	}
	if got := q.Get("sort_by"); got != "vote_average.desc" {
		t.Errorf("sort_by = %q", got)
	}
	if got := q.Get("vote_count.gte"); got != "300" {
		t.Errorf("vote_count.gte = %q", got)
	}
	if q.Get("vote_average.gte") == "" {
		t.Error("vote_average.gte not forwarded")
	}
}

func TestTMDBFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"rate limited", tmdb.ErrRateLimitExceeded, http.StatusTooManyRequests, ErrCodeRateLimited},
		{"not found", &tmdb.UpstreamError{Status: http.StatusNotFound, Code: 34}, http.StatusNotFound, ErrCodeNotFound},
		{"upstream 500", &tmdb.UpstreamError{Status: http.StatusInternalServerError}, http.StatusInternalServerError, ErrCodeSearchFailed},
		{"generic", tmdb.ErrUpstream, http.StatusInternalServerError, ErrCodeSearchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := tmdbFailure(tt.err, ErrCodeSearchFailed)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Errorf("tmdbFailure() = %d %s, want %d %s", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}
