// Package memory provides an in-process TTL cache for query results.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = time.Minute

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Cache is a thread-safe TTL cache. Expired entries are never returned and
// are swept by a background goroutine until Close.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time

	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache that sweeps expired entries every cleanupInterval.
func New(cleanupInterval time.Duration) *Cache {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	c := &Cache{
		items:    make(map[string]entry),
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.cleanup(cleanupInterval)
	return c
}

// Get returns a copy of the value stored under key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || e.isExpired(c.now()) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a copy of value under key for ttl.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.items[key] = entry{
		value:     append([]byte(nil), value...),
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// DeletePrefix removes every key starting with prefix.
func (c *Cache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
	return nil
}

// Clear removes all entries.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		close(c.shutdown)
		<-c.done
	})
	return nil
}

func (c *Cache) cleanup(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.items {
		if e.isExpired(now) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

var _ simplecatalog.Cache = (*Cache)(nil)
