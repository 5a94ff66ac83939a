// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package ratelimit bounds outbound TMDB traffic and tracks failed
// account-flow attempts.
package ratelimit

import (
	"sync"
	"time"
)

// Default outbound policy: 40 admissions per rolling 10 seconds.
const (
	DefaultLimit  = 40
	DefaultWindow = 10 * time.Second
)

// SlidingWindow admits at most limit calls in any trailing window.
//
// Unlike a bucketed counter it keeps one timestamp per admission, which is
// exact and cheap at this limit. The limiter is process-global: it bounds
// aggregate load on the upstream API, not per-caller fairness.
type SlidingWindow struct {
	mu     sync.Mutex
	stamps []time.Time // ascending
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewSlidingWindow creates a limiter. Non-positive arguments fall back to
// the defaults.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{
		stamps: make([]time.Time, 0, limit),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// SetClock replaces time.Now, for tests.
func (sw *SlidingWindow) SetClock(now func() time.Time) {
	sw.mu.Lock()
	sw.now = now
	sw.mu.Unlock()
}

// TryAdmit prunes timestamps that have left the window, then admits iff
// fewer than limit remain. A rejected call changes nothing; callers should
// surface "try later" rather than spin on it.
func (sw *SlidingWindow) TryAdmit() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.prune(now)
	if len(sw.stamps) >= sw.limit {
		return false
	}
	sw.stamps = append(sw.stamps, now)
	return true
}

// Remaining reports how many admissions are currently available.
func (sw *SlidingWindow) Remaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.prune(sw.now())
	return sw.limit - len(sw.stamps)
}

// RetryAfter is how long until the oldest admission leaves the window.
// Zero when a slot is free.
func (sw *SlidingWindow) RetryAfter() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.prune(now)
	if len(sw.stamps) < sw.limit {
		return 0
	}
	return sw.stamps[0].Add(sw.window).Sub(now)
}

func (sw *SlidingWindow) Limit() int { return sw.limit }

func (sw *SlidingWindow) Window() time.Duration { return sw.window }

// prune drops stamps at or beyond the window edge. Must hold mu.
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.stamps) && !sw.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.stamps = append(sw.stamps[:0], sw.stamps[i:]...)
	}
}
