package main

import (
	"sync"
	"time"
)

// RunCache provides thread-safe caching for the parsed run history
type RunCache struct {
	mu          sync.RWMutex
	runs        []RunRecord
	populated   bool
	lastUpdated time.Time
	ttl         time.Duration
}

// NewRunCache creates a new run cache with the specified TTL
func NewRunCache(ttl time.Duration) *RunCache {
	return &RunCache{
		ttl: ttl,
	}
}

// Get retrieves the run history from cache if not expired
// Returns the runs and a boolean indicating if the cache hit was successful
func (c *RunCache) Get() ([]RunRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.populated {
		return nil, false
	}

	if time.Since(c.lastUpdated) > c.ttl {
		return nil, false
	}

	// Return a copy to prevent external modifications
	runsCopy := make([]RunRecord, len(c.runs))
	copy(runsCopy, c.runs)

	return runsCopy, true
}

// Set updates the cache with a freshly loaded run history. An empty history
// is a valid cached value.
func (c *RunCache) Set(runs []RunRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runs = make([]RunRecord, len(runs))
	copy(c.runs, runs)
	c.populated = true
	c.lastUpdated = time.Now()
}

// Invalidate clears the cache. Called after every run log append.
func (c *RunCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runs = nil
	c.populated = false
	c.lastUpdated = time.Time{}
}

// GetLastUpdated returns when the cache was last updated
func (c *RunCache) GetLastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdated
}

// IsExpired checks if the cache has expired
func (c *RunCache) IsExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.populated {
		return true
	}

	return time.Since(c.lastUpdated) > c.ttl
}
