// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

// movieCacheMaxAge is the browser cache lifetime for movie listings.
const movieCacheMaxAge = 60 * time.Second

// MovieListResponse is returned by popular and search.
type MovieListResponse struct {
	Success    bool            `json:"success"`
	Data       *tmdb.MovieList `json:"data"`
	CacheStats tmdb.CacheStats `json:"cache_stats"`
}

// MovieDetailsData bundles the three detail resources with resolved image
// URLs.
type MovieDetailsData struct {
	Details     *tmdb.MovieDetails `json:"details"`
	Credits     *tmdb.Credits      `json:"credits"`
	Videos      *tmdb.Videos       `json:"videos"`
	PosterURL   string             `json:"poster_url,omitempty"`
	BackdropURL string             `json:"backdrop_url,omitempty"`
}

// PopularMovies handles GET /api/movies/popular?page=
func (h *Handler) PopularMovies(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidPage,
			"Invalid page number. Please choose between 1 and 1000.", "")
		return
	}

	list, err := h.movies.Popular(r.Context(), page)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("page", page).Msg("Popular movies request failed")
		status, code := tmdbFailure(err, ErrCodeFetchFailed)
		respondError(w, status, code, movieErrorMessage(code, "Unable to load popular movies right now. Please try again."), h.details(err))
		return
	}

	respondCachedJSON(w, r, &MovieListResponse{
		Success:    true,
		Data:       list,
		CacheStats: h.movies.CacheStats(),
	}, movieCacheMaxAge)
}

// SearchMovies handles GET /api/movies/search?q=&page=
func (h *Handler) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, ErrCodeMissingQuery, "Search query is required", "")
		return
	}
	if len([]rune(query)) < 2 {
		respondError(w, http.StatusBadRequest, ErrCodeQueryTooShort, "Search query must be at least 2 characters", "")
		return
	}
	page, ok := pageParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidPage, msgInvalidPage, "")
		return
	}

	start := time.Now()
	list, err := h.movies.Search(r.Context(), query, page)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("page", page).Msg("Movie search failed")
		status, code := tmdbFailure(err, ErrCodeSearchFailed)
		respondError(w, status, code, movieErrorMessage(code, "Unable to search movies right now. Please try again."), h.details(err))
		return
	}

	logging.Ctx(r.Context()).Debug().
		Int("page", page).
		Int("total_results", list.TotalResults).
		Int("returned", len(list.Results)).
		Dur("duration", time.Since(start)).
		Msg("Movie search succeeded")

	respondCachedJSON(w, r, &MovieListResponse{
		Success:    true,
		Data:       list,
		CacheStats: h.movies.CacheStats(),
	}, movieCacheMaxAge)
}

// MovieDetails handles GET /api/movies/{id}. Details, credits and videos
// are fetched in parallel; any failure fails the request.
func (h *Handler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidID, msgInvalidMovieID, "")
		return
	}

	var data MovieDetailsData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		d, err := h.movies.Details(ctx, id)
		data.Details = d
		return err
	})
	g.Go(func() error {
		c, err := h.movies.Credits(ctx, id)
		data.Credits = c
		return err
	})
	g.Go(func() error {
		v, err := h.movies.Videos(ctx, id)
		data.Videos = v
		return err
	})
	if err := g.Wait(); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("movie_id", id).Msg("Movie details request failed")
		status, code := tmdbFailure(err, ErrCodeFetchFailed)
		respondError(w, status, code, movieErrorMessage(code, "Unable to load movie details right now. Please try again."), h.details(err))
		return
	}

	if data.Details.PosterPath != nil {
		data.PosterURL = h.movies.ImageURL(*data.Details.PosterPath, "w500")
	}
	if data.Details.BackdropPath != nil {
		data.BackdropURL = h.movies.ImageURL(*data.Details.BackdropPath, "original")
	}

	respondCachedJSON(w, r, &DataResponse{Success: true, Data: &data}, movieCacheMaxAge)
}

// SimilarMovies handles GET /api/movies/{id}/similar. Signed-in users do
// not see their own favorites in the result.
func (h *Handler) SimilarMovies(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidID, msgInvalidMovieID, "")
		return
	}

	var exclude []int
	if ac := auth.FromContext(r.Context()); ac.Authenticated && h.favorites != nil {
		favs, err := h.favorites.List(r.Context(), ac.UserID)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Could not load favorites to filter similar movies")
		}
		for i := range favs {
			exclude = append(exclude, favs[i].MovieID)
		}
	}

	list := tmdb.EmptyMovieList()
	list.Results = h.recommender.Similar(r.Context(), id, exclude)
	list.TotalResults = len(list.Results)
	list.TotalPages = 1

	respondJSON(w, http.StatusOK, &DataResponse{Success: true, Data: list})
}

// DiscoverMovies handles GET /api/movies/discover with TMDB's filter names:
// page, with_genres, sort_by, vote_count.gte and vote_average.gte.
func (h *Handler) DiscoverMovies(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidPage, msgInvalidPage, "")
		return
	}
	voteCount, _ := getIntParam(r, "vote_count.gte", 0)

	params := tmdb.DiscoverParams{
		Page:           page,
		WithGenres:     joinInts(parseCommaSeparatedInts(r.URL.Query().Get("with_genres"))),
		SortBy:         strings.TrimSpace(r.URL.Query().Get("sort_by")),
		VoteCountGTE:   max(voteCount, 0),
		VoteAverageGTE: max(getFloatParam(r, "vote_average.gte", 0), 0),
	}

	list, err := h.movies.Discover(r.Context(), params)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("with_genres", params.WithGenres).Msg("Discover request failed")
		status, code := tmdbFailure(err, ErrCodeFetchFailed)
		respondError(w, status, code, movieErrorMessage(code, "Failed to discover movies"), h.details(err))
		return
	}

	respondCachedJSON(w, r, &DataResponse{Success: true, Data: list}, movieCacheMaxAge)
}

// movieErrorMessage picks the user-facing text for a mapped failure.
func movieErrorMessage(code, fallback string) string {
	switch code {
	case ErrCodeRateLimited:
		return tmdb.ErrRateLimitExceeded.Error()
	case ErrCodeNotFound:
		return "Movie not found"
	default:
		return fallback
	}
}
