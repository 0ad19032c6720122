package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooLarge is returned when an upload cannot be stored by the backend.
var ErrTooLarge = errors.New("upload too large for cache backend")

// Upload is a stored CSV upload. Raw holds the file bytes exactly as received;
// the table is re-parsed on every read so only one representation is kept.
type Upload struct {
	Filename   string
	Raw        []byte
	UploadedAt time.Time
}

// UploadStore defines the interface for upload caching implementations.
// Get returns the upload if present and not expired, Set stores it with TTL.
type UploadStore interface {
	Get(ctx context.Context, id string) (Upload, bool, error)
	Set(ctx context.Context, id string, value Upload, ttl time.Duration) error
}

// InMemoryCache implements UploadStore using an in-memory map with TTL-based expiration.
// Expired entries are removed on access and when new entries are stored.
type InMemoryCache struct {
	mu         sync.Mutex
	data       map[string]cacheEntry
	maxEntries int
}

// cacheEntry stores an upload with its expiration timestamp.
type cacheEntry struct {
	value     Upload
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache. maxEntries bounds the number of
// live uploads (0 = unbounded); when full, the entry closest to expiry is evicted.
func NewInMemoryCache(maxEntries int) *InMemoryCache {
	return &InMemoryCache{
		data:       make(map[string]cacheEntry),
		maxEntries: maxEntries,
	}
}

// Get retrieves the upload for id if present and not expired.
// Returns (upload, true, nil) on hit, (zero, false, nil) on miss or expiration.
func (c *InMemoryCache) Get(ctx context.Context, id string) (Upload, bool, error) {
	if err := ctx.Err(); err != nil {
		return Upload{}, false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[id]
	if !ok {
		return Upload{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.data, id)
		return Upload{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores the upload with the specified TTL.
func (c *InMemoryCache) Set(ctx context.Context, id string, value Upload, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.pruneLocked(now)
	if _, exists := c.data[id]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.data[id] = cacheEntry{
		value:     value,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet pruned.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *InMemoryCache) pruneLocked(now time.Time) {
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
}

func (c *InMemoryCache) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for k, e := range c.data {
		if oldest == "" || e.expiresAt.Before(oldestAt) {
			oldest, oldestAt = k, e.expiresAt
		}
	}
	if oldest != "" {
		delete(c.data, oldest)
	}
}
