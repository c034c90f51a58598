package zones

import (
	"context"
	"sync"
	"time"
)

// CachedCatalog keeps the last catalog read for ttl so postal lookups made
// while a buyer types do not hit the database on every keystroke.
type CachedCatalog struct {
	source Catalog
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	zones     []DeliveryZone
	fetchedAt time.Time
}

// NewCachedCatalog wraps source with a read-through cache.
func NewCachedCatalog(source Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{source: source, ttl: ttl, now: time.Now}
}

func (c *CachedCatalog) Zones(ctx context.Context) ([]DeliveryZone, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.zones != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return StaticCatalog(c.zones).Zones(ctx)
	}
	zones, err := c.source.Zones(ctx)
	if err != nil {
		return nil, err
	}
	c.zones = zones
	c.fetchedAt = c.now()
	return StaticCatalog(zones).Zones(ctx)
}

// Invalidate drops the cached zones.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.zones = nil
	c.mu.Unlock()
}
