// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package recommend builds content-based movie recommendations from a
// user's favorites.
//
// # Algorithm
//
// The engine samples the first favorites, fetches their TMDB details and
// accumulates a genre score per favorite:
//
//	weight = max(rating/10, 0.5)   // 1 when the favorite has no rating
//
// The top genres by score (ties broken by the lower genre ID) each drive a
// TMDB discover query for well-rated titles. Favorited movies are removed,
// a few titles are kept per genre, and the merged list is de-duplicated by
// movie ID, first occurrence winning.
//
// # Fallback
//
// With no favorites, no scored genres, or an empty result, the engine
// returns the first page of popular movies instead. Individual TMDB
// failures are logged and skipped, never returned.
//
// # Pacing
//
// Detail fetches are separated by a fixed delay enforced with a
// golang.org/x/time/rate limiter, so a single request never bursts
// against the shared outbound budget.
//
// # Usage
//
//	engine := recommend.NewEngine(tmdbClient, recommend.DefaultConfig())
//	movies, err := engine.Recommend(ctx, favs)
package recommend
