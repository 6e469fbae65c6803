package registry

import (
	"sync"

	"github.com/pders01/modelkeep/internal/models"
)

// entry is the cache record for one identity: its status, the live handle
// when loaded, and the failure reason when failed.
type entry struct {
	status models.Status
	handle *Handle
	err    error
}

// Cache is a thread-safe map from model identity to lifecycle state.
// Transitions are linearizable per identity: all mutations happen under
// one mutex, so no two goroutines observe conflicting states.
type Cache struct {
	mu      sync.RWMutex
	entries map[models.Identity]*entry
}

// NewCache creates an empty cache; every identity starts NotLoaded.
func NewCache() *Cache {
	return &Cache{entries: make(map[models.Identity]*entry)}
}

// Status returns the current status for an identity.
func (c *Cache) Status(id models.Identity) models.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[id]; ok {
		return e.status
	}
	return models.StatusNotLoaded
}

// IsAvailable reports whether the identity holds a live handle.
// True only in the Loaded state.
func (c *Cache) IsAvailable(id models.Identity) bool {
	return c.Status(id) == models.StatusLoaded
}

// Loaded returns the live handle if the identity is Loaded.
func (c *Cache) Loaded(id models.Identity) (*Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[id]; ok && e.status == models.StatusLoaded {
		return e.handle, true
	}
	return nil, false
}

// FailureReason returns the error recorded for a Failed identity.
func (c *Cache) FailureReason(id models.Identity) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[id]; ok && e.status == models.StatusFailed {
		return e.err
	}
	return nil
}

// setLoading marks a new load attempt.
func (c *Cache) setLoading(id models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = &entry{status: models.StatusLoading}
}

// setLoaded stores the handle and completes the attempt.
func (c *Cache) setLoaded(id models.Identity, h *Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = &entry{status: models.StatusLoaded, handle: h}
}

// setFailed records the failure reason and completes the attempt.
func (c *Cache) setFailed(id models.Identity, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = &entry{status: models.StatusFailed, err: err}
}

// Invalidate drops the handle and resets the identity to NotLoaded.
// The next Load re-reads the artifact from disk.
func (c *Cache) Invalidate(id models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
