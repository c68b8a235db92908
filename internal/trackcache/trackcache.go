// Package trackcache is an optional redis read cache for the public order
// tracking endpoint, the one route customers hit repeatedly while waiting for
// their order. A nil *Cache disables caching entirely.
package trackcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amendes/orderdesk/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyTracking = "tracking:%s:%s" // tenantID, orderID
	ttl         = 5 * time.Minute
)

type Cache struct {
	rdb *redis.Client
}

// New connects to addr; an empty addr returns nil, which every method treats
// as a cache miss / no-op.
func New(addr string) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func key(tenantID, orderID string) string { return fmt.Sprintf(keyTracking, tenantID, orderID) }

// Get returns the cached order, or nil on miss or any redis error. Cache
// failures never fail a tracking lookup.
func (c *Cache) Get(ctx context.Context, tenantID, orderID string) *models.Order {
	if c == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, key(tenantID, orderID)).Bytes()
	if err != nil {
		return nil
	}
	var o models.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil
	}
	return &o
}

// Put stores the order for the tracking TTL; errors are ignored.
func (c *Cache) Put(ctx context.Context, o *models.Order) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key(o.TenantID, o.ID), raw, ttl)
}

// Invalidate drops the cached entry after a write to the order.
func (c *Cache) Invalidate(ctx context.Context, tenantID, orderID string) {
	if c == nil {
		return
	}
	c.rdb.Del(ctx, key(tenantID, orderID))
}
