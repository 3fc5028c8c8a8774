package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/storefront/cart-ledger/internal/domain"
)

type cacheEntry struct {
	snap      domain.ProductSnapshot
	expiresAt time.Time
}

// CachedCatalog decorates a Catalog with per-product TTL entries. Stock goes
// stale within the TTL window, which is acceptable: the ledger only treats
// it as a snapshot and the order system re-validates at submission.
type CachedCatalog struct {
	source Catalog
	ttl    time.Duration
	sfg    singleflight.Group // Prevents cache stampede

	mu      sync.RWMutex
	entries map[int64]cacheEntry
}

func NewCachedCatalog(source Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		source:  source,
		ttl:     ttl,
		entries: make(map[int64]cacheEntry),
	}
}

func (c *CachedCatalog) Snapshot(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[productID]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.snap, nil
	}

	// Use singleflight to collapse concurrent misses for the same product
	v, err, _ := c.sfg.Do(strconv.FormatInt(productID, 10), func() (interface{}, error) {
		snap, err := c.source.Snapshot(ctx, productID)
		if err != nil {
			return domain.ProductSnapshot{}, err
		}

		c.mu.Lock()
		c.entries[productID] = cacheEntry{snap: snap, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()

		return snap, nil
	})
	if err != nil {
		return domain.ProductSnapshot{}, err
	}

	return v.(domain.ProductSnapshot), nil
}

// List is a passthrough: listings are already paginated and render stale
// prices poorly.
func (c *CachedCatalog) List(ctx context.Context, page, perPage int) ([]domain.ProductSnapshot, error) {
	return c.source.List(ctx, page, perPage)
}

// Invalidate drops the cached entry for a product.
func (c *CachedCatalog) Invalidate(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, productID)
}
