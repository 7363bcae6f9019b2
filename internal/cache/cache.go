// Package cache provides the Redis-backed short-term caches used by the
// webhook pipeline.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voxline/core/internal/config"
)

const seenEventPrefix = "webhook:seen:"

// Cache wraps the Redis client. Every entry it writes carries a TTL, so the
// working set stays bounded by the retention window instead of growing
// without eviction.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Connect establishes a connection to Redis
func Connect(ctx context.Context, cfg *config.RedisConfig, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("connected to redis", "addr", cfg.Addr(), "db", cfg.DB)

	return &Cache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}, nil
}

// NewWithClient wraps an existing client, used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, logger: logger, ttl: ttl}
}

// IsEventSeen reports whether an external event ID is inside the dedupe
// window. Read-only: it never writes the key and never extends a TTL. This
// is only the fast path in front of the durable dedupe; the database unique
// constraint remains authoritative.
func (c *Cache) IsEventSeen(ctx context.Context, externalEventID string) (bool, error) {
	n, err := c.client.Exists(ctx, seenEventPrefix+externalEventID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check event seen: %w", err)
	}
	return n > 0, nil
}

// MarkEventSeen records an external event ID and reports whether it was
// already present. Callers must mark only after the event row is durable;
// a key for an event that was never stored would shadow its redelivery.
func (c *Cache) MarkEventSeen(ctx context.Context, externalEventID string) (bool, error) {
	set, err := c.client.SetNX(ctx, seenEventPrefix+externalEventID, 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event seen: %w", err)
	}
	return !set, nil
}

// Close closes the underlying Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
