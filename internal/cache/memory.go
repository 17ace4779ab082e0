package cache

import (
	"sync"
	"time"

	"spindle/pkg/models"
)

// entry is a cached item with expiration
type entry struct {
	value      models.Album
	expiration time.Time
}

func (e *entry) expired() bool {
	return time.Now().After(e.expiration)
}

// ReleaseCache keeps fetched per-release details (notably track lists) in
// memory so a collection refresh does not refetch every release from the
// catalog API.
type ReleaseCache struct {
	items map[int]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// NewReleaseCache creates a release cache with the given entry lifetime
func NewReleaseCache(ttl time.Duration) *ReleaseCache {
	return &ReleaseCache{
		items: make(map[int]*entry),
		ttl:   ttl,
	}
}

// Set stores release details under the release id
func (c *ReleaseCache) Set(id int, album models.Album) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[id] = &entry{
		value:      album,
		expiration: time.Now().Add(c.ttl),
	}
}

// Get retrieves release details if present and not expired
func (c *ReleaseCache) Get(id int) (models.Album, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.items[id]
	if !exists || e.expired() {
		return models.Album{}, false
	}
	return e.value, true
}

// Delete removes a release from the cache
func (c *ReleaseCache) Delete(id int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, id)
}

// Clear removes all cached releases
func (c *ReleaseCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[int]*entry)
}

// Size returns the number of cached releases, expired entries included
func (c *ReleaseCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Prune removes expired entries. The client calls this at the start of a
// collection refresh instead of running a background sweeper.
func (c *ReleaseCache) Prune() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for id, e := range c.items {
		if e.expired() {
			delete(c.items, id)
		}
	}
}
