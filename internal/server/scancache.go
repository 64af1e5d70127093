package server

import (
	"sync"
	"time"

	"github.com/jhye/pistorm/internal/model"
)

// maxCachedNetworks bounds the cached survey. The embedded display
// pages through at most this many entries.
const maxCachedNetworks = 20

// scanCache holds the last survey for the pagination endpoints, so the
// display can page through results without triggering a rescan per
// page.
type scanCache struct {
	mu       sync.Mutex
	networks []model.Network
	at       time.Time
	ttl      time.Duration
}

// newScanCache creates a cache with the given freshness window.
func newScanCache(ttl time.Duration) *scanCache {
	return &scanCache{ttl: ttl}
}

// put stores a survey, capped at maxCachedNetworks.
func (c *scanCache) put(networks []model.Network, now time.Time) {
	if len(networks) > maxCachedNetworks {
		networks = networks[:maxCachedNetworks]
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networks = networks
	c.at = now
}

// fresh returns the cached survey when it is within the freshness
// window. The boolean is false when a rescan is needed.
func (c *scanCache) fresh(now time.Time) ([]model.Network, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.at.IsZero() || now.Sub(c.at) > c.ttl {
		return nil, false
	}
	return c.networks, true
}

// current returns whatever the cache holds, stale or not.
func (c *scanCache) current() []model.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.networks
}
