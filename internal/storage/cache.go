// cache.go - In-memory read cache in front of a report store

package storage

import (
	"context"
	"sync"
	"time"
)

type cachedReport struct {
	record   ReportRecord
	loadedAt time.Time
}

// CachedStore serves repeated Get calls from memory for ttl
type CachedStore struct {
	inner   ReportStore
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cachedReport
}

// NewCachedStore wraps inner; ttl <= 0 disables caching
func NewCachedStore(inner ReportStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cachedReport),
	}
}

// Save writes through and caches the record. A failed write drops any cached copy of that report.
func (c *CachedStore) Save(ctx context.Context, record *ReportRecord) error {
	if err := c.inner.Save(ctx, record); err != nil {
		c.invalidate(record.RequestID)
		return err
	}
	c.put(*record)
	return nil
}

// Get retrieves a report from cache or loads it from the store
func (c *CachedStore) Get(ctx context.Context, requestID string) (*ReportRecord, error) {
	c.mu.RLock()
	entry, exists := c.entries[requestID]
	c.mu.RUnlock()

	if exists && time.Since(entry.loadedAt) < c.ttl {
		record := entry.record
		return &record, nil
	}

	record, err := c.inner.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	c.put(*record)
	return record, nil
}

// List always reads from the store
func (c *CachedStore) List(ctx context.Context, limit int) ([]ReportRecord, error) {
	return c.inner.List(ctx, limit)
}

func (c *CachedStore) invalidate(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, requestID)
}

// Close drops the cache and closes the store
func (c *CachedStore) Close() error {
	c.mu.Lock()
	c.entries = make(map[string]cachedReport)
	c.mu.Unlock()
	return c.inner.Close()
}

func (c *CachedStore) put(record ReportRecord) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, entry := range c.entries {
		if now.Sub(entry.loadedAt) >= c.ttl {
			delete(c.entries, id)
		}
	}
	c.entries[record.RequestID] = cachedReport{record: record, loadedAt: now}
}
