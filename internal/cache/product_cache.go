package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/iyhunko/inventory-sync/internal/model"
)

const (
	// ProductsCachePrefix prefixes the versioned snapshot of the whole store.
	ProductsCachePrefix = "inventory:products:v:"
	// CacheVersionKey is bumped on every commit so stale snapshots are never read.
	CacheVersionKey = "inventory:version"
)

// ProductCache keeps the decoded inventory in redis between commits.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewProductCache creates a ProductCache whose entries expire after ttl.
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{
		redis: client,
		ttl:   ttl,
	}
}

// GetProducts returns the cached inventory for the current version. On a
// miss the version is still returned so that a caller can fill the entry
// without racing a concurrent Invalidate; it is 0 when redis is unavailable.
func (c *ProductCache) GetProducts(ctx context.Context) ([]model.Product, int64, bool) {
	version, err := c.version(ctx)
	if err != nil {
		return nil, 0, false
	}

	data, err := c.redis.Get(ctx, productsKey(version)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("failed to read cached inventory", slog.Any("err", err))
		}
		return nil, version, false
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		slog.Warn("failed to unmarshal cached inventory", slog.Any("err", err))
		return nil, version, false
	}
	return products, version, true
}

// SetProducts caches products under version, as returned by a GetProducts miss.
func (c *ProductCache) SetProducts(ctx context.Context, version int64, products []model.Product) error {
	if version <= 0 {
		return nil
	}

	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory for cache: %w", err)
	}

	if err := c.redis.Set(ctx, productsKey(version), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache inventory: %w", err)
	}
	return nil
}

// Invalidate bumps the version so the next read misses.
func (c *ProductCache) Invalidate(ctx context.Context) error {
	newVersion, err := c.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	slog.Info("inventory cache invalidated", slog.Int64("new_version", newVersion))
	return nil
}

func (c *ProductCache) version(ctx context.Context) (int64, error) {
	ver, err := c.redis.Get(ctx, CacheVersionKey).Int64()
	if err == nil {
		return ver, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to read cache version: %w", err)
	}

	// SetNX so a concurrent Invalidate is not overwritten.
	if err := c.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err != nil {
		return 0, fmt.Errorf("failed to initialize cache version: %w", err)
	}
	ver, err = c.redis.Get(ctx, CacheVersionKey).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to read cache version: %w", err)
	}
	return ver, nil
}

func productsKey(version int64) string {
	return fmt.Sprintf("%s%d", ProductsCachePrefix, version)
}
