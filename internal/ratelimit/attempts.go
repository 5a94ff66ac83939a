// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package ratelimit

import (
	"math"
	"sync"
	"time"
)

// AttemptConfig configures an AttemptLimiter.
type AttemptConfig struct {
	// MaxAttempts failures lock the key out.
	MaxAttempts int
	// Window is measured from the most recent failure. Once it passes
	// without another failure the key is forgotten.
	Window time.Duration
}

// AttemptResult is returned by Check.
type AttemptResult struct {
	Allowed  bool
	Attempts int
	// RetryAfter is how long the caller must wait when not allowed.
	RetryAfter time.Duration
}

// RetryAfterMinutes rounds RetryAfter up to whole minutes for user-facing
// messages.
func (r AttemptResult) RetryAfterMinutes() int {
	return int(math.Ceil(r.RetryAfter.Minutes()))
}

type attemptEntry struct {
	count       int
	lastAttempt time.Time
}

// AttemptLimiter counts failed signup and activation attempts per key
// (email:ip for signup, ip for activation) and locks a key out once it
// reaches MaxAttempts within Window of the last failure.
type AttemptLimiter struct {
	mu      sync.Mutex
	cfg     AttemptConfig
	entries map[string]*attemptEntry
	now     func() time.Time
}

func NewAttemptLimiter(cfg AttemptConfig) *AttemptLimiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &AttemptLimiter{
		cfg:     cfg,
		entries: make(map[string]*attemptEntry),
		now:     time.Now,
	}
}

// SetClock replaces time.Now, for tests.
func (l *AttemptLimiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Check reports whether key may attempt again.
func (l *AttemptLimiter) Check(key string) AttemptResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return AttemptResult{Allowed: true}
	}
	elapsed := l.now().Sub(e.lastAttempt)
	if elapsed > l.cfg.Window {
		delete(l.entries, key)
		return AttemptResult{Allowed: true}
	}
	if e.count >= l.cfg.MaxAttempts {
		return AttemptResult{Attempts: e.count, RetryAfter: l.cfg.Window - elapsed}
	}
	return AttemptResult{Allowed: true, Attempts: e.count}
}

// RecordFailure increments key's counter and restarts its window.
func (l *AttemptLimiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &attemptEntry{}
		l.entries[key] = e
	}
	e.count++
	e.lastAttempt = l.now()
}

// Clear forgets key, after a successful attempt.
func (l *AttemptLimiter) Clear(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Cleanup drops keys whose window has passed and returns how many.
func (l *AttemptLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for k, e := range l.entries {
		if now.Sub(e.lastAttempt) > l.cfg.Window {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked keys.
func (l *AttemptLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
