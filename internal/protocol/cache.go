package protocol

import "sync"

// Cache is the client-side snapshot holder. Every accepted snapshot
// replaces the previous one wholesale; there is no field-level merging.
// Out-of-order and duplicate deliveries are dropped by version.
type Cache struct {
	mu      sync.RWMutex
	version int
	snap    *Snapshot
}

func NewCache() *Cache {
	return &Cache{version: -1}
}

// Apply installs snap if it is newer than what the cache holds. Returns
// whether the cache changed.
func (c *Cache) Apply(snap *Snapshot) bool {
	if snap == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Version <= c.version {
		return false
	}
	c.version = snap.Version
	c.snap = snap
	return true
}

// Latest returns the current snapshot and its version; nil before the
// first delivery.
func (c *Cache) Latest() (*Snapshot, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap, c.version
}

// Stale reports whether the cache has fallen behind an advertised
// version, e.g. from a heartbeat pong; the caller should re-request a
// full snapshot rather than wait for a replay.
func (c *Cache) Stale(advertised int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return advertised > c.version
}
