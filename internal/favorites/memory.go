// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package favorites

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type favoriteKey struct {
	userID  string
	movieID int
}

// MemoryStore keeps favorites in process memory. Uniqueness per
// (user, movie) is enforced under the lock.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[favoriteKey]Favorite
	now   func() time.Time
	clock int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[favoriteKey]Favorite),
		now:  time.Now,
	}
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Favorite
	for k, f := range s.rows {
		if k.userID == userID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MovieID > out[j].MovieID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string, movieID int) (*Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.rows[favoriteKey{userID, movieID}]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *MemoryStore) Add(ctx context.Context, userID string, movie Movie) (*Favorite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := favoriteKey{userID, movie.ID}
	if _, ok := s.rows[key]; ok {
		return nil, ErrDuplicate
	}

	// Successive adds get strictly increasing timestamps so List ordering
	// is stable even when the wall clock does not advance.
	s.clock++
	now := s.now().Add(time.Duration(s.clock))
	f := Favorite{
		ID:               uuid.NewString(),
		UserID:           userID,
		MovieID:          movie.ID,
		MovieTitle:       movie.Title,
		MoviePoster:      movie.Poster,
		MovieReleaseDate: movie.ReleaseDate,
		MovieRating:      movie.Rating,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.rows[key] = f
	return &f, nil
}

func (s *MemoryStore) Remove(ctx context.Context, userID string, movieID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := favoriteKey{userID, movieID}
	if _, ok := s.rows[key]; !ok {
		return ErrNotFound
	}
	delete(s.rows, key)
	return nil
}

// Len returns the number of stored favorites across all users.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
