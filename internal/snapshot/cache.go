package snapshot

import (
	"sync"

	"github.com/quantfoundry/universe-data/internal/model"
)

// DefaultCacheCapacity bounds the in-process cache when no capacity is
// configured.
const DefaultCacheCapacity = 5

// cache is a bounded snapshot cache keyed by timestamp.
//
// Eviction is oldest-timestamp: when full, the entry whose key is
// lexicographically smallest is dropped. Because timestamps sort
// chronologically, that is always the oldest snapshot. Access order is
// never consulted; this is not an LRU.
type cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*model.Snapshot
}

func newCache(capacity int) *cache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	return &cache{
		capacity: capacity,
		entries:  make(map[string]*model.Snapshot, capacity),
	}
}

// get returns the cached snapshot for the timestamp, if present. Cached
// snapshots are shared; callers must treat them as immutable.
func (c *cache) get(ts string) (*model.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[ts]
	return s, ok
}

// put stores a snapshot, evicting the smallest timestamp when full.
// Overwriting an existing timestamp never evicts.
func (c *cache) put(ts string, s *model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[ts]; !ok && len(c.entries) >= c.capacity {
		oldest := ""
		for key := range c.entries {
			if oldest == "" || key < oldest {
				oldest = key
			}
		}
		delete(c.entries, oldest)
	}
	c.entries[ts] = s
}

// remove drops the entry for the timestamp, if present.
func (c *cache) remove(ts string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ts)
}

// len reports the number of cached snapshots.
func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// timestamps returns the cached keys in unspecified order.
func (c *cache) timestamps() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for ts := range c.entries {
		out = append(out, ts)
	}
	return out
}
