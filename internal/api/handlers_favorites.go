// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/moviesavanna/internal/auth"
	"github.com/tomtom215/moviesavanna/internal/favorites"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
	"github.com/tomtom215/moviesavanna/internal/validation"
)

// FavoritesResponse is returned by GET /api/favorites.
type FavoritesResponse struct {
	Success bool `json:"success"`
	// Favorites is a pointer so an empty list still encodes as [] while
	// error responses omit the member.
	Favorites *[]favorites.Favorite `json:"favorites,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// FavoriteStatusResponse is returned by the status check and the toggle.
type FavoriteStatusResponse struct {
	Success     bool   `json:"success"`
	IsFavorited bool   `json:"is_favorited"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RecommendationsData is the data member of GET /api/recommendations.
type RecommendationsData struct {
	Movies []tmdb.Movie `json:"movies"`
}

// ListFavorites handles GET /api/favorites, newest first.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	if !ac.Authenticated {
		respondJSON(w, http.StatusUnauthorized, &FavoritesResponse{Error: msgAuthRequired})
		return
	}

	favs, err := h.favorites.List(r.Context(), ac.UserID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("user_id", logging.SanitizeUserID(ac.UserID)).Msg("Failed to fetch favorites")
		respondJSON(w, http.StatusInternalServerError, &FavoritesResponse{Error: "Failed to fetch favorites"})
		return
	}
	if favs == nil {
		favs = []favorites.Favorite{}
	}

	respondJSON(w, http.StatusOK, &FavoritesResponse{Success: true, Favorites: &favs})
}

// FavoriteStatus handles GET /api/favorites/{movieId}. Anonymous callers
// get is_favorited false rather than an error.
func (h *Handler) FavoriteStatus(w http.ResponseWriter, r *http.Request) {
	movieID, ok := parseID(chi.URLParam(r, "movieId"))
	if !ok {
		respondJSON(w, http.StatusBadRequest, &FavoriteStatusResponse{Error: msgInvalidMovieID})
		return
	}

	ac := auth.FromContext(r.Context())
	if !ac.Authenticated {
		respondJSON(w, http.StatusOK, &FavoriteStatusResponse{Success: true})
		return
	}

	fav, err := h.favorites.Get(r.Context(), ac.UserID, movieID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int("movie_id", movieID).Msg("Failed to check favorite status")
		respondJSON(w, http.StatusInternalServerError, &FavoriteStatusResponse{Error: "Failed to check favorite status"})
		return
	}

	respondJSON(w, http.StatusOK, &FavoriteStatusResponse{Success: true, IsFavorited: fav != nil})
}

// ToggleFavorite handles POST /api/favorites/toggle.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	if !ac.Authenticated {
		respondJSON(w, http.StatusUnauthorized, &FavoriteStatusResponse{Error: msgAuthRequired})
		return
	}

	var req validation.ToggleFavoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Invalid favorites toggle body")
		respondJSON(w, http.StatusBadRequest, &FavoriteStatusResponse{Error: "Invalid request data"})
		return
	}
	req.Normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondJSON(w, http.StatusBadRequest, &FavoriteStatusResponse{Error: verr.First()})
		return
	}

	result, err := favorites.Toggle(r.Context(), h.favorites, ac.UserID, favorites.Movie{
		ID:          req.MovieID,
		Title:       req.MovieTitle,
		Poster:      req.MoviePoster,
		ReleaseDate: req.MovieReleaseDate,
		Rating:      req.MovieRating,
	})
	if err != nil {
		msg := msgInternalError
		if d := h.details(err); d != "" {
			msg += ": " + d
		}
		respondJSON(w, http.StatusInternalServerError, &FavoriteStatusResponse{Error: msg})
		return
	}

	respondJSON(w, http.StatusOK, &FavoriteStatusResponse{
		Success:     true,
		IsFavorited: result.Favorited,
		Message:     result.Message,
	})
}

// Recommendations handles GET /api/recommendations. A favorites read
// failure degrades to the popular fallback.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	if !ac.Authenticated {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, msgAuthRequired, "")
		return
	}

	favs, err := h.favorites.List(r.Context(), ac.UserID)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Favorites unavailable, recommending popular movies")
		favs = nil
	}

	movies, err := h.recommender.Recommend(r.Context(), favs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError,
			"Unable to load recommendations right now. Please try again.", h.details(err))
		return
	}

	respondJSON(w, http.StatusOK, &DataResponse{Success: true, Data: &RecommendationsData{Movies: movies}})
}
