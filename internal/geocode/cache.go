// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wneessen/clockdash/internal/geolocation"
)

const (
	// gridSize is the edge length of a cache cell in degrees (about 1.1 km of latitude).
	gridSize = 0.01

	// maxCacheEntries bounds the cache. Expired entries are purged once it is full.
	maxCacheEntries = 512
)

type cacheEntry struct {
	Address Address
	Expiry  time.Time
}

// CachedGeocoder remembers the results of the wrapped Geocoder per grid cell. Addresses
// that were found live for ttlHit, empty answers for ttlMiss. Errors are never cached.
// Concurrent lookups for the same cell share one upstream request.
type CachedGeocoder struct {
	coder   Geocoder
	ttlHit  time.Duration
	ttlMiss time.Duration
	group   singleflight.Group

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewCachedGeocoder(coder Geocoder, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:   coder,
		ttlHit:  ttlHit,
		ttlMiss: ttlMiss,
		cache:   make(map[string]cacheEntry),
	}
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

func (c *CachedGeocoder) Reverse(ctx context.Context, coords geolocation.Coordinate) (Address, error) {
	key := cellKey(c.coder.Name(), coords)
	if addr, ok := c.lookup(key); ok {
		return addr, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		addr, err := c.coder.Reverse(ctx, coords)
		if err != nil {
			return addr, err
		}
		c.store(key, addr)
		return addr, nil
	})
	addr, _ := res.(Address)
	return addr, err
}

// Purge drops all expired entries.
func (c *CachedGeocoder) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked(time.Now())
}

func (c *CachedGeocoder) lookup(key string) (Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !time.Now().Before(entry.Expiry) {
		return Address{}, false
	}
	addr := entry.Address
	addr.CacheHit = true
	return addr, true
}

func (c *CachedGeocoder) store(key string, addr Address) {
	ttl := c.ttlHit
	if !addr.Found {
		ttl = c.ttlMiss
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cache) >= maxCacheEntries {
		c.purgeLocked(now)
	}
	if len(c.cache) >= maxCacheEntries {
		return
	}
	c.cache[key] = cacheEntry{Address: addr, Expiry: now.Add(ttl)}
}

func (c *CachedGeocoder) purgeLocked(now time.Time) {
	for key, entry := range c.cache {
		if !now.Before(entry.Expiry) {
			delete(c.cache, key)
		}
	}
}

// cellKey maps a coordinate onto the south-west corner of its grid cell.
func cellKey(provider string, coords geolocation.Coordinate) string {
	lat := int32(math.Floor(coords.Lat / gridSize))
	lon := int32(math.Floor(coords.Lon / gridSize))
	return fmt.Sprintf("%s|%d|%d", provider, lat, lon)
}
