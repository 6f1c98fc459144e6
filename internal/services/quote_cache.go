package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

// quoteCache memoises resolution results per cart+address for a short TTL so
// repeated checkout-page refreshes do not recompute the search.
type quoteCache struct {
	ttl time.Duration
	now func() time.Time
	mu  sync.RWMutex
	m   map[string]quoteCacheEntry
}

type quoteCacheEntry struct {
	result  ResolveShippingResult
	expires time.Time
}

func newQuoteCache(ttl time.Duration, now func() time.Time) *quoteCache {
	return &quoteCache{
		ttl: ttl,
		now: now,
		m:   make(map[string]quoteCacheEntry),
	}
}

func (c *quoteCache) Get(key string) (ResolveShippingResult, bool) {
	c.mu.RLock()
	entry, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return ResolveShippingResult{}, false
	}
	if c.now().After(entry.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return ResolveShippingResult{}, false
	}
	return entry.result, true
}

func (c *quoteCache) Put(key string, result ResolveShippingResult) {
	c.mu.Lock()
	c.m[key] = quoteCacheEntry{result: result, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// buildQuoteCacheKey canonicalises the request: items are sorted so line
// order does not fragment the cache.
func buildQuoteCacheKey(items []domain.LineItem, address domain.Address, strategy string, maxPlans int) string {
	parts := []string{
		strings.ToUpper(strings.TrimSpace(address.Country)),
		strings.TrimSpace(address.PostalCode),
		strings.ToUpper(strings.TrimSpace(address.State)),
		strategy,
		fmt.Sprintf("%d", maxPlans),
	}

	itemParts := make([]string, len(items))
	for i, item := range items {
		itemParts[i] = fmt.Sprintf("%s,%d,%d,%d", item.ProductID, item.Quantity, item.UnitWeightGrams, item.UnitPrice)
	}
	sort.Strings(itemParts)
	parts = append(parts, strings.Join(itemParts, ";"))

	return strings.Join(parts, "|")
}
