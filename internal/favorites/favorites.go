// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package favorites stores the movies each user has marked as a favorite.
//
// Two backends implement Store: SupabaseStore (the user_favorites table via
// PostgREST) and MemoryStore for development and tests. Toggle flips a
// movie's state with a check-then-act sequence; the table's unique
// (user_id, movie_id) constraint settles concurrent inserts.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/metrics"
)

var (
	// ErrNotFound is returned by Remove when no row matched.
	ErrNotFound = errors.New("favorite not found")

	// ErrDuplicate is returned by Add when the movie is already a favorite.
	ErrDuplicate = errors.New("favorite already exists")

	// ErrPersistence wraps backend failures.
	ErrPersistence = errors.New("favorites persistence error")
)

// Favorite is one row of user_favorites.
type Favorite struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	MovieID          int       `json:"movie_id"`
	MovieTitle       string    `json:"movie_title"`
	MoviePoster      *string   `json:"movie_poster"`
	MovieReleaseDate *string   `json:"movie_release_date"`
	MovieRating      *float64  `json:"movie_rating"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Movie is the movie snapshot saved with a favorite.
type Movie struct {
	ID          int
	Title       string
	Poster      *string
	ReleaseDate *string
	Rating      *float64
}

// Store persists favorites. Implementations must be safe for concurrent use.
type Store interface {
	// List returns the user's favorites, newest first.
	List(ctx context.Context, userID string) ([]Favorite, error)

	// Get returns (nil, nil) when the movie is not a favorite.
	Get(ctx context.Context, userID string, movieID int) (*Favorite, error)

	// Add returns ErrDuplicate when the row already exists.
	Add(ctx context.Context, userID string, movie Movie) (*Favorite, error)

	// Remove returns ErrNotFound when there was nothing to delete.
	Remove(ctx context.Context, userID string, movieID int) error
}

// ToggleResult reports the state after a toggle.
type ToggleResult struct {
	Favorited bool
	Message   string
}

// Toggle messages.
const (
	MessageAdded   = "Added to favorites"
	MessageRemoved = "Removed from favorites"
)

// Toggle adds the movie if it is not a favorite and removes it if it is.
//
// The read and the write are separate calls. A concurrent add that wins
// the race surfaces as ErrDuplicate and is reported as favorited; a
// concurrent remove surfaces as ErrNotFound and is reported as removed.
// Neither case is rolled back.
func Toggle(ctx context.Context, store Store, userID string, movie Movie) (ToggleResult, error) {
	existing, err := store.Get(ctx, userID, movie.ID)
	if err != nil {
		metrics.RecordFavoritesOperation("toggle", err)
		return ToggleResult{}, fmt.Errorf("check favorite: %w", err)
	}

	log := logging.With().
		Str("user_id", logging.SanitizeUserID(userID)).
		Int("movie_id", movie.ID).
		Logger()

	if existing != nil {
		err = store.Remove(ctx, userID, movie.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			metrics.RecordFavoritesOperation("remove", err)
			return ToggleResult{Favorited: true}, fmt.Errorf("remove favorite: %w", err)
		}
		metrics.RecordFavoritesOperation("remove", nil)
		log.Info().Msg("Favorite removed")
		return ToggleResult{Favorited: false, Message: MessageRemoved}, nil
	}

	_, err = store.Add(ctx, userID, movie)
	switch {
	case errors.Is(err, ErrDuplicate):
		// Lost the race against another add; re-read to confirm.
		if again, gerr := store.Get(ctx, userID, movie.ID); gerr != nil || again == nil {
			if gerr == nil {
				gerr = ErrPersistence
			}
			metrics.RecordFavoritesOperation("add", gerr)
			return ToggleResult{}, fmt.Errorf("re-read favorite after conflict: %w", gerr)
		}
		log.Debug().Msg("Favorite already present after concurrent add")
	case err != nil:
		metrics.RecordFavoritesOperation("add", err)
		return ToggleResult{}, fmt.Errorf("add favorite: %w", err)
	}

	metrics.RecordFavoritesOperation("add", nil)
	log.Info().Msg("Favorite added")
	return ToggleResult{Favorited: true, Message: MessageAdded}, nil
}

// MovieIDs returns the set of favorited movie IDs.
func MovieIDs(favs []Favorite) map[int]struct{} {
	ids := make(map[int]struct{}, len(favs))
	for i := range favs {
		ids[favs[i].MovieID] = struct{}{}
	}
	return ids
}
