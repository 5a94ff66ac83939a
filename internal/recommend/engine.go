// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"context"
	"sort"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/tomtom215/moviesavanna/internal/favorites"
	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/metrics"
	"github.com/tomtom215/moviesavanna/internal/tmdb"
)

// Recommendation sources, used as metric labels.
const (
	SourcePersonalized = "personalized"
	SourcePopular      = "popular"
)

// MovieSource is the subset of the TMDB client the engine needs.
// *tmdb.Client satisfies it.
type MovieSource interface {
	Popular(ctx context.Context, page int) (*tmdb.MovieList, error)
	Details(ctx context.Context, id int) (*tmdb.MovieDetails, error)
	Discover(ctx context.Context, p tmdb.DiscoverParams) (*tmdb.MovieList, error)
	Similar(ctx context.Context, id int) (*tmdb.MovieList, error)
}

// Engine produces recommendations. It holds no per-user state and is safe
// for concurrent use.
type Engine struct {
	source MovieSource
	config Config
}

// NewEngine creates an engine. An invalid config falls back to
// DefaultConfig.
func NewEngine(source MovieSource, cfg Config) *Engine {
	if err := cfg.Validate(); err != nil {
		logging.Warn().Err(err).Msg("Invalid recommendation config, using defaults")
		cfg = DefaultConfig()
	}
	return &Engine{source: source, config: cfg}
}

// Recommend returns up to MaxResults movies for the given favorites. TMDB
// failures degrade to the popular list; the only error returned is the
// context's.
func (e *Engine) Recommend(ctx context.Context, favs []favorites.Favorite) ([]tmdb.Movie, error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)

	if len(favs) == 0 {
		return e.popular(ctx)
	}

	scores, err := e.scoreGenres(ctx, favs)
	if err != nil {
		return nil, err
	}
	genres := topGenres(scores, e.config.TopGenres)
	if len(genres) == 0 {
		log.Debug().Msg("No genre preferences found, falling back to popular movies")
		return e.popular(ctx)
	}

	movies := e.discoverByGenres(ctx, genres, favorites.MovieIDs(favs))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(movies) == 0 {
		return e.popular(ctx)
	}

	names := make([]string, len(genres))
	for i, id := range genres {
		names[i] = GenreName(id)
	}
	log.Info().
		Ints("top_genres", genres).
		Strs("genre_names", names).
		Int("favorites", len(favs)).
		Int("count", len(movies)).
		Msg("Generated recommendations")
	metrics.RecordRecommendations(SourcePersonalized)
	return movies, nil
}

// scoreGenres accumulates weighted genre scores over the first SampleSize
// favorites. Detail fetches are paced and failures skipped.
func (e *Engine) scoreGenres(ctx context.Context, favs []favorites.Favorite) (map[int]float64, error) {
	sample := favs
	if len(sample) > e.config.SampleSize {
		sample = sample[:e.config.SampleSize]
	}

	limit := rate.Inf
	if e.config.Pacing > 0 {
		limit = rate.Every(e.config.Pacing)
	}
	pace := rate.NewLimiter(limit, 1)

	scores := make(map[int]float64)
	for i := range sample {
		if err := pace.Wait(ctx); err != nil {
			return nil, err
		}

		fav := &sample[i]
		details, err := e.source.Details(ctx, fav.MovieID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Ctx(ctx).Warn().Err(err).Int("movie_id", fav.MovieID).Msg("Failed to get movie details for recommendations")
			continue
		}

		w := weight(fav.MovieRating)
		for _, g := range details.Genres {
			scores[g.ID] += w
		}
	}
	return scores, nil
}

// weight favors highly rated favorites: max(rating/10, 0.5), or 1 when
// unrated.
func weight(rating *float64) float64 {
	if rating == nil {
		return 1
	}
	w := *rating / 10
	if w < 0.5 {
		return 0.5
	}
	return w
}

// topGenres returns up to n genre IDs by descending score. Equal scores
// are ordered by ascending genre ID.
func topGenres(scores map[int]float64, n int) []int {
	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// discoverByGenres queries each genre in order, drops excluded IDs, keeps
// PerGenre titles per genre and merges them without duplicates.
func (e *Engine) discoverByGenres(ctx context.Context, genres []int, exclude map[int]struct{}) []tmdb.Movie {
	seen := make(map[int]struct{})
	out := make([]tmdb.Movie, 0, e.config.MaxResults)

	for _, g := range genres {
		list, err := e.source.Discover(ctx, tmdb.DiscoverParams{
			Page:           1,
			WithGenres:     strconv.Itoa(g),
			SortBy:         e.config.SortBy,
			VoteCountGTE:   e.config.MinVoteCount,
			VoteAverageGTE: e.config.MinRating,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.Ctx(ctx).Warn().Err(err).Int("genre_id", g).Msg("Failed to discover movies for genre")
			continue
		}

		kept := 0
		for _, m := range list.Results {
			if kept == e.config.PerGenre {
				break
			}
			if _, fav := exclude[m.ID]; fav {
				continue
			}
			kept++
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}

	if len(out) > e.config.MaxResults {
		out = out[:e.config.MaxResults]
	}
	return out
}

// popular is the fallback list. A failure yields an empty list.
func (e *Engine) popular(ctx context.Context) ([]tmdb.Movie, error) {
	metrics.RecordRecommendations(SourcePopular)

	list, err := e.source.Popular(ctx, 1)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to load popular movies for recommendations")
		return []tmdb.Movie{}, nil
	}
	movies := list.Results
	if len(movies) > e.config.MaxResults {
		movies = movies[:e.config.MaxResults]
	}
	if movies == nil {
		movies = []tmdb.Movie{}
	}
	return movies, nil
}

// Similar returns TMDB's similar titles for movieID minus the excluded
// IDs, at most MaxSimilar. Failures yield an empty list.
func (e *Engine) Similar(ctx context.Context, movieID int, exclude []int) []tmdb.Movie {
	list, err := e.source.Similar(ctx, movieID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("movie_id", movieID).Msg("Failed to get similar movies")
		return []tmdb.Movie{}
	}

	skip := make(map[int]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	out := make([]tmdb.Movie, 0, e.config.MaxSimilar)
	for _, m := range list.Results {
		if len(out) == e.config.MaxSimilar {
			break
		}
		if _, ok := skip[m.ID]; ok {
			continue
		}
		out = append(out, m)
	}
	return out
}
