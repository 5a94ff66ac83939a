// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// SampleSize is how many favorites (from the front of the list) are
	// analyzed for genre preferences.
	SampleSize int

	// TopGenres is how many of the highest scoring genres are queried.
	TopGenres int

	// PerGenre caps the titles kept from each genre's discover results.
	PerGenre int

	// MaxResults caps the merged recommendation list and the popular
	// fallback.
	MaxResults int

	// MaxSimilar caps Similar results.
	MaxSimilar int

	// MinVoteCount and MinRating filter discover results.
	MinVoteCount int
	MinRating    float64

	// SortBy is the discover sort order.
	SortBy string

	// Pacing is the delay between successive detail fetches. Zero disables
	// pacing.
	Pacing time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		SampleSize:   8,
		TopGenres:    3,
		PerGenre:     6,
		MaxResults:   12,
		MaxSimilar:   6,
		MinVoteCount: 300,
		MinRating:    6.0,
		SortBy:       "vote_average.desc",
		Pacing:       100 * time.Millisecond,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample size must be positive, got %d", c.SampleSize)
	}
	if c.TopGenres <= 0 {
		return fmt.Errorf("top genres must be positive, got %d", c.TopGenres)
	}
	if c.PerGenre <= 0 || c.MaxResults <= 0 || c.MaxSimilar <= 0 {
		return fmt.Errorf("result limits must be positive")
	}
	if c.MinRating < 0 || c.MinRating > 10 {
		return fmt.Errorf("min rating must be in [0, 10], got %g", c.MinRating)
	}
	if c.Pacing < 0 {
		return fmt.Errorf("pacing must not be negative")
	}
	return nil
}
