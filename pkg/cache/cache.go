package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client redis.UniversalClient
}

func New(addr, password string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: rdb}
}

func (c *Cache) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error {
	return c.client.Set(ctx, namespace+":"+key, value, ttl).Err()
}

func (c *Cache) Get(ctx context.Context, namespace, key string) (string, error) {
	return c.client.Get(ctx, namespace+":"+key).Result()
}

func (c *Cache) Delete(ctx context.Context, namespace, key string) error {
	return c.client.Del(ctx, namespace+":"+key).Err()
}

// SetNX marks key once within ttl; returns true if this caller set it.
// Used as an advisory replay guard on webhook deliveries; the ledger's
// conditional transition remains the real idempotency authority.
func (c *Cache) SetNX(ctx context.Context, namespace, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, namespace+":"+key, "1", ttl).Result()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
