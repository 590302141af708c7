package frontier

import "sync"

// setCache is a thread-safe store of multiple named sets of keys,
// generalized from the reference crawler's single-purpose visited-link
// cache so the frontier can track seen/crawled membership under one
// mutex-guarded structure instead of two ad-hoc maps.
type setCache struct {
	mutex sync.RWMutex
	sets  map[string]map[string]bool
}

func newSetCache() *setCache {
	return &setCache{sets: make(map[string]map[string]bool)}
}

// Add inserts key into the named set, lazily creating the set.
func (c *setCache) Add(namespace, key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, ok := c.sets[namespace]; !ok {
		c.sets[namespace] = make(map[string]bool)
	}
	c.sets[namespace][key] = true
}

// Contains reports whether key is a member of the named set.
func (c *setCache) Contains(namespace, key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.sets[namespace][key]
}

// Len returns the size of the named set.
func (c *setCache) Len(namespace string) int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.sets[namespace])
}
