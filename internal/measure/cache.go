package measure

import "sync"

type cacheKey struct {
	measure string
	period  string
}

type entry struct {
	value  float64
	ok     bool
	cyclic bool
}

// Cache memoizes calculated values keyed by (measure, period). It is safe
// for concurrent use and is always owned by the caller; the resolver only
// touches it when handed one through WithCache.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]entry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]entry)}
}

// Len returns the number of memoized results.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops every period of code and of each measure that reads it
// through g. A nil graph drops code only. It returns the number of entries
// removed.
func (c *Cache) Invalidate(code string, g *Graph) int {
	if c == nil {
		return 0
	}
	stale := map[string]struct{}{code: {}}
	if g != nil {
		for _, dep := range g.Dependents(code) {
			stale[dep] = struct{}{}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if _, ok := stale[key.measure]; ok {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// InvalidatePeriod drops every measure memoized for period.
func (c *Cache) InvalidatePeriod(period string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if key.period == period {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Reset empties the cache.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]entry)
}

func (c *Cache) lookup(code, period string) (entry, bool) {
	if c == nil {
		return entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[cacheKey{measure: code, period: period}]
	return e, ok
}

func (c *Cache) store(code, period string, e entry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{measure: code, period: period}] = e
}
