package collect

import (
	"sync"

	"github.com/Sriram-PR/urlfinder/pkg/urls"
)

// Cache hands out one *urls.URL per raw value so repeated candidates share memoized
// permutations and child URLs
type Cache struct {
	mu    sync.RWMutex
	cache map[string]*urls.URL
}

// NewCache creates an empty value cache
func NewCache() *Cache {
	return &Cache{
		cache: make(map[string]*urls.URL),
	}
}

// Get returns the cached value for raw, creating it on first use
func (c *Cache) Get(raw string) *urls.URL {
	c.mu.RLock()
	u, ok := c.cache[raw]
	c.mu.RUnlock()
	if ok {
		return u
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.cache[raw]; ok {
		return u
	}
	u = urls.New(raw)
	c.cache[raw] = u
	return u
}

// Clear removes all cached entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*urls.URL)
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
