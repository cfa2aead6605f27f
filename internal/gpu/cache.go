package gpu

import (
	"sync"
	"time"
)

// ResultCache remembers the last successful detection for the life of the
// process. It never holds a vendor-none record and only Clear empties it.
type ResultCache struct {
	mu       sync.RWMutex
	record   *CapabilityRecord
	storedAt time.Time
}

// NewResultCache returns an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{}
}

// Get returns a copy of the cached record.
func (c *ResultCache) Get() (*CapabilityRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.record == nil {
		return nil, false
	}
	return c.record.Clone(), true
}

// Set stores a copy of rec. Records without an accelerator are ignored.
func (c *ResultCache) Set(rec *CapabilityRecord) {
	if !rec.IsAccelerated() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = rec.Clone()
	c.storedAt = time.Now()
}

// Clear drops the cached record.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = nil
	c.storedAt = time.Time{}
}

// StoredAt returns when the cached record was written, or the zero time.
func (c *ResultCache) StoredAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storedAt
}
