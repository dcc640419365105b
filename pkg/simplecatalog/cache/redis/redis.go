// Package redis provides a query cache shared between catalog instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

// DefaultNamespace prefixes every key written by the cache.
const DefaultNamespace = "simplecatalog:"

const scanBatch = 256

// Config options for the Redis cache
type Config struct {
	URL       string // redis://[:password@]host:port/db
	Namespace string // Key prefix; DefaultNamespace when empty
}

// Cache stores query results in Redis under a namespace.
type Cache struct {
	client    redis.UniversalClient
	namespace string
}

// New connects lazily to the Redis server at config.URL.
func New(config Config) (*Cache, error) {
	if config.URL == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(opts), config.Namespace), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, namespace string) *Cache {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Cache{client: client, namespace: namespace}
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get returns the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, c.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.namespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix scans for keys starting with prefix and deletes them in
// batches. Keys written concurrently with the scan may survive.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(c.namespace+prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del %s: %w", prefix, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Clear removes every key in the namespace.
func (c *Cache) Clear(ctx context.Context) error {
	return c.DeletePrefix(ctx, "")
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ simplecatalog.Cache = (*Cache)(nil)
