package simplecatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Default cache lifetimes.
const (
	DefaultListTTL   = 30 * time.Second
	DefaultShaderTTL = 5 * time.Minute
)

const (
	libraryPrefix = "library:"
	shadersPrefix = "shaders:"
)

// libraryKey is the cache key of a ListRecords result. Every filter field is
// part of the key so distinct queries never share an entry.
func libraryKey(f ListFilter) string {
	scope := "all"
	if f.Type != "" {
		scope = string(f.Type)
	}
	return fmt.Sprintf("%s%s:%s:%t:%s:%d:%d:%d",
		libraryPrefix, scope, f.SortBy, f.SortDesc, f.Genre, f.MinRating, f.Limit, f.Offset)
}

func shaderListKey(f ShaderFilter) string {
	return fmt.Sprintf("%slist:%s:%g:%s", shadersPrefix, f.Category, f.MinStars, f.SortBy)
}

// queryCache stores JSON-encoded query results in a Cache. A nil Cache
// disables caching. Backend failures are logged and treated as misses.
type queryCache struct {
	cache   Cache
	logger  *slog.Logger
	metrics *Metrics
}

func (c *queryCache) get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.cache == nil {
		return false
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "err", err)
		ok = false
	}
	if ok {
		if err := json.Unmarshal(data, dst); err != nil {
			c.logger.Warn("cache entry undecodable", "key", key, "err", err)
			ok = false
		}
	}
	c.metrics.cacheResult(ok)
	return ok
}

func (c *queryCache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if c == nil || c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
}

// invalidateType drops every cached result that may contain records of t.
func (c *queryCache) invalidateType(ctx context.Context, t TypeTag) {
	if c == nil || c.cache == nil {
		return
	}
	prefixes := []string{libraryPrefix + string(t) + ":", libraryPrefix + "all:"}
	if t == TypeShader {
		prefixes = append(prefixes, shadersPrefix)
	}
	for _, p := range prefixes {
		if err := c.cache.DeletePrefix(ctx, p); err != nil {
			c.logger.Warn("cache invalidation failed", "prefix", p, "err", err)
		}
	}
}

func (c *queryCache) clear(ctx context.Context) {
	if c == nil || c.cache == nil {
		return
	}
	if err := c.cache.Clear(ctx); err != nil {
		c.logger.Warn("cache clear failed", "err", err)
	}
}

func (c *queryCache) close() error {
	if c == nil || c.cache == nil {
		return nil
	}
	return c.cache.Close()
}
