package require

import "sync"

// Cache keeps requirement results per host for one harness run, so a
// scenario that checks the same tools before every step probes each host once.
type Cache struct {
	mu      sync.Mutex
	results map[string]map[string]CheckResult // host -> tool -> result
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{results: make(map[string]map[string]CheckResult)}
}

// Get retrieves a cached result for a host/tool combination.
func (c *Cache) Get(host, tool string) (CheckResult, bool) {
	if c == nil {
		return CheckResult{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.results[host][tool]
	return result, ok
}

// Set stores a result for a host/tool combination.
func (c *Cache) Set(host, tool string, result CheckResult) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results[host] == nil {
		c.results[host] = make(map[string]CheckResult)
	}
	c.results[host][tool] = result
}

// Clear forgets a host, e.g. after packages were reinstalled on it.
func (c *Cache) Clear(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.results, host)
}
