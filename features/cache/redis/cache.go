// Package redis provides a planner.Cache backed by Redis for sharing
// memoized plans across processes.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enerflow/enerflow/runtime/planner"
)

// Cache stores serialized plans under a key prefix.
type Cache struct {
	client *redis.Client
	prefix string
}

// New constructs a Redis-backed plan cache. An empty prefix defaults to
// "enerflow:plan:".
func New(client *redis.Client, prefix string) (*Cache, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		prefix = "enerflow:plan:"
	}
	return &Cache{client: client, prefix: prefix}, nil
}

// NewFromAddr constructs a cache over a default client for addr.
func NewFromAddr(addr, prefix string) (*Cache, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	return New(redis.NewClient(&redis.Options{Addr: addr}), prefix)
}

// Get returns the cached plan or (nil, nil) when absent.
func (c *Cache) Get(ctx context.Context, key string) (*planner.Plan, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	plan, err := planner.DecodePlan([]byte(val))
	if err != nil {
		return nil, fmt.Errorf("decode cached plan: %w", err)
	}
	return plan, nil
}

// Set stores the plan under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, plan *planner.Plan, ttl time.Duration) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
