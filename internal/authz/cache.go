// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package authz

import (
	"sync"
	"time"
)

// maxCachedDecisions bounds the cache; paths come from requests.
const maxCachedDecisions = 10000

// decisionCache caches enforcement results per (role, path, action).
// Expired items are dropped on read; the whole map is reset when full.
type decisionCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]decision
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	return &decisionCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]decision),
	}
}

func decisionKey(role, path, action string) string {
	return role + "\x00" + path + "\x00" + action
}

func (c *decisionCache) get(role, path, action string) (allowed, ok bool) {
	key := decisionKey(role, path, action)

	c.mu.RLock()
	d, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		return false, false
	}
	if !c.now().Before(d.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return false, false
	}
	return d.allowed, true
}

func (c *decisionCache) set(role, path, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= maxCachedDecisions {
		c.items = make(map[string]decision)
	}
	c.items[decisionKey(role, path, action)] = decision{
		allowed:   allowed,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *decisionCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
