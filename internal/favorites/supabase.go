// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package favorites

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	postgrest "github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	favoritesTable = "user_favorites"

	// PostgREST reports errors as "(CODE) message".
	codeNoRows          = "(PGRST116)"
	codeUniqueViolation = "(23505)"
)

// favoriteRow is the insert payload. Nil pointers are sent as null.
type favoriteRow struct {
	UserID           string   `json:"user_id"`
	MovieID          int      `json:"movie_id"`
	MovieTitle       string   `json:"movie_title"`
	MoviePoster      *string  `json:"movie_poster"`
	MovieReleaseDate *string  `json:"movie_release_date"`
	MovieRating      *float64 `json:"movie_rating"`
}

// SupabaseStore reads and writes user_favorites through PostgREST.
//
// It authenticates with the service role key, so every query filters on
// user_id explicitly. The table must have a unique (user_id, movie_id)
// constraint for Toggle's conflict handling.
type SupabaseStore struct {
	client *supabase.Client
}

func NewSupabaseStore(url, serviceRoleKey string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(strings.TrimRight(url, "/"), serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) List(ctx context.Context, userID string) ([]Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var favs []Favorite
	_, err := s.client.From(favoritesTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&favs)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	if favs == nil {
		favs = []Favorite{}
	}
	return favs, nil
}

func (s *SupabaseStore) Get(ctx context.Context, userID string, movieID int) (*Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var f Favorite
	_, err := s.client.From(favoritesTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("movie_id", strconv.Itoa(movieID)).
		Single().
		ExecuteTo(&f)
	if err != nil {
		if strings.Contains(err.Error(), codeNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get: %v", ErrPersistence, err)
	}
	return &f, nil
}

func (s *SupabaseStore) Add(ctx context.Context, userID string, movie Movie) (*Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := favoriteRow{
		UserID:           userID,
		MovieID:          movie.ID,
		MovieTitle:       movie.Title,
		MoviePoster:      movie.Poster,
		MovieReleaseDate: movie.ReleaseDate,
		MovieRating:      movie.Rating,
	}
	var inserted []Favorite
	_, err := s.client.From(favoritesTable).
		Insert(row, false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		if strings.Contains(err.Error(), codeUniqueViolation) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("%w: add: %v", ErrPersistence, err)
	}
	if len(inserted) == 0 {
		return nil, fmt.Errorf("%w: add: no row returned", ErrPersistence)
	}
	return &inserted[0], nil
}

func (s *SupabaseStore) Remove(ctx context.Context, userID string, movieID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var deleted []Favorite
	_, err := s.client.From(favoritesTable).
		Delete("representation", "").
		Eq("user_id", userID).
		Eq("movie_id", strconv.Itoa(movieID)).
		ExecuteTo(&deleted)
	if err != nil {
		return fmt.Errorf("%w: remove: %v", ErrPersistence, err)
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}
