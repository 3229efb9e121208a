// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"email-triage/internal/common/logger"
	"email-triage/internal/models"
)

const activeProductsKey = "products:active"

// ActiveLister is the slice of ProductStore the cache wraps.
type ActiveLister interface {
	ListActive(ctx context.Context) ([]models.Product, error)
}

// ProductCache is a read-through redis cache for the active catalog. The
// catalog changes rarely and is re-serialized into every recommendation and
// bundle prompt, so one TTL'd key covers it. A nil redis client degrades to
// uncached reads.
type ProductCache struct {
	store  ActiveLister
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewProductCache(store ActiveLister, rdb *redis.Client, ttl time.Duration, log logger.Logger) *ProductCache {
	return &ProductCache{
		store:  store,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "product-cache"}),
	}
}

// ListActive returns the cached active catalog, falling back to the store on
// a miss or any cache error.
func (c *ProductCache) ListActive(ctx context.Context) ([]models.Product, error) {
	if c.redis != nil {
		if val, err := c.redis.Get(ctx, activeProductsKey).Result(); err == nil {
			var products []models.Product
			if err := json.Unmarshal([]byte(val), &products); err == nil {
				return products, nil
			}
		}
	}

	products, err := c.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if c.redis != nil {
		data, _ := json.Marshal(products)
		if err := c.redis.Set(ctx, activeProductsKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("product cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	return products, nil
}

// Invalidate drops the cached catalog.
func (c *ProductCache) Invalidate(ctx context.Context) {
	if c.redis != nil {
		_ = c.redis.Del(ctx, activeProductsKey).Err()
	}
}
