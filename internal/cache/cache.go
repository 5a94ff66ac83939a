// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package cache provides the in-process TTL cache that sits in front of
// outbound TMDB calls.
package cache

import (
	"container/list"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Entry is a cached payload. It is valid while now - StoredAt < TTL.
type Entry struct {
	Data     interface{}
	StoredAt time.Time
	TTL      time.Duration

	elem *list.Element
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.StoredAt) >= e.TTL
}

// Stats is a point-in-time snapshot. Total, Valid and Expired describe the
// live entry set; Expired counts entries not yet lazily evicted.
type Stats struct {
	Total     int   `json:"total"`
	Valid     int   `json:"valid"`
	Expired   int   `json:"expired"`
	Stale     int   `json:"stale"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	StaleHits int64 `json:"stale_hits"`
	Evictions int64 `json:"evictions"`
}

// Cache is a mutex-guarded TTL cache with lazy expiry.
//
// There is no background sweeper for live entries: an expired entry is
// removed by the Get that finds it. The last value stored under each key
// is also kept in a stale shadow so callers can degrade to it when a
// refresh fails (see GetStale). The shadow is trimmed only by PruneStale,
// Delete, Clear and capacity eviction.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	stale   map[string]*Entry
	order   *list.List // front = most recently used

	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	hits      int64
	misses    int64
	staleHits int64
	evictions int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the live set; the least recently used key is
// evicted (live and stale) when a new key would exceed n. n <= 0 means
// unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache whose Set uses ttl.
//
//	c := cache.New(30*time.Minute, cache.WithMaxEntries(1000))
//	c.SetWithTTL("/search/movie?query=dune&page=1", body, 10*time.Minute)
//	if v, ok := c.Get(key); ok { ... }
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*Entry),
		stale:   make(map[string]*Entry),
		order:   list.New(),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and unexpired. An expired
// entry is removed from the live set and reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(c.now()) {
		c.removeLive(key, e)
		c.evictions++
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	c.hits++
	return e.Data, true
}

// GetStale returns the last value stored under key whether or not it has
// expired, along with when it was stored.
func (c *Cache) GetStale(key string) (interface{}, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.stale[key]
	if !ok {
		return nil, time.Time{}, false
	}
	c.staleHits++
	return e.Data, e.StoredAt, true
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key, replacing any previous entry.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := &Entry{Data: value, StoredAt: c.now(), TTL: ttl}
	if old, ok := c.entries[key]; ok {
		c.order.Remove(old.elem)
	} else if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	e.elem = c.order.PushFront(key)
	c.entries[key] = e
	c.stale[key] = e
}

// Delete removes key from both the live set and the stale shadow.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.removeLive(key, e)
		c.evictions++
	}
	delete(c.stale, key)
}

// Clear drops every entry, live and stale.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictions += int64(len(c.entries))
	c.entries = make(map[string]*Entry)
	c.stale = make(map[string]*Entry)
	c.order.Init()
}

// PruneStale drops stale-shadow values stored more than maxAge ago that
// are no longer live, and returns how many were dropped.
func (c *Cache) PruneStale(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	pruned := 0
	for key, e := range c.stale {
		if _, live := c.entries[key]; live {
			continue
		}
		if now.Sub(e.StoredAt) > maxAge {
			delete(c.stale, key)
			pruned++
		}
	}
	return pruned
}

// Stats counts valid and expired live entries without evicting anything.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{
		Total:     len(c.entries),
		Stale:     len(c.stale),
		Hits:      c.hits,
		Misses:    c.misses,
		StaleHits: c.staleHits,
		Evictions: c.evictions,
	}
	for _, e := range c.entries {
		if e.expired(now) {
			s.Expired++
		} else {
			s.Valid++
		}
	}
	return s
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache) HitRate() float64 {
	s := c.Stats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// removeLive must be called with mu held. The stale shadow keeps its copy.
func (c *Cache) removeLive(key string, e *Entry) {
	c.order.Remove(e.elem)
	delete(c.entries, key)
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	back := c.order.Back()
	if back == nil {
		return
	}
	key, _ := back.Value.(string)
	if e, ok := c.entries[key]; ok {
		c.removeLive(key, e)
	}
	delete(c.stale, key)
	c.evictions++
}

// GenerateKey hashes params into a compact key prefixed by method.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
