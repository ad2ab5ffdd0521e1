package graph

import (
	"sync"
	"sync/atomic"
)

// PlanCache is a thread-safe store of resolved plans keyed by Plan.Key.
// When full it evicts the least recently used plan.
type PlanCache struct {
	// entries maps plan keys to cached plans
	entries map[string]*cacheEntry

	// maxEntries is the maximum number of plans (0 = unlimited)
	maxEntries int

	// tick orders accesses for LRU eviction
	tick uint64

	mu sync.Mutex

	hits   atomic.Uint64
	misses atomic.Uint64
}

type cacheEntry struct {
	plan       *Plan
	lastAccess uint64
}

// CacheStats is a point-in-time view of cache usage.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// NewPlanCache creates a cache holding at most maxEntries plans.
func NewPlanCache(maxEntries int) *PlanCache {
	return &PlanCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
	}
}

// Get returns the plan stored under key.
func (c *PlanCache) Get(key string) (*Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.tick++
	e.lastAccess = c.tick
	c.hits.Add(1)
	return e.plan, true
}

// Put stores a plan under its key.
func (c *PlanCache) Put(p *Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[p.Key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}
	c.tick++
	c.entries[p.Key] = &cacheEntry{plan: p, lastAccess: c.tick}
}

// Len returns the number of cached plans.
func (c *PlanCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all plans. Counters are kept.
func (c *PlanCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Stats returns hit and miss counts and the current size.
func (c *PlanCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.Len(),
	}
}

// evictLRU must be called with the lock held.
func (c *PlanCache) evictLRU() {
	var oldestKey string
	var oldest uint64
	for key, e := range c.entries {
		if oldestKey == "" || e.lastAccess < oldest {
			oldestKey = key
			oldest = e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
