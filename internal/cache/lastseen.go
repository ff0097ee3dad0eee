// Package cache holds Redis-backed caches.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lastSeenTTL = 7 * 24 * time.Hour

// LastSeenCache stores per-user activity timestamps in Redis. Entries expire
// after a week of inactivity.
type LastSeenCache struct {
	client *redis.Client
}

// NewLastSeenCache creates a Redis-backed last seen cache.
func NewLastSeenCache(client *redis.Client) *LastSeenCache {
	return &LastSeenCache{client: client}
}

func lastSeenKey(userID int64) string {
	return fmt.Sprintf("user:last_seen:%d", userID)
}

// Touch stamps the user's activity time.
func (c *LastSeenCache) Touch(ctx context.Context, userID int64, seen time.Time) error {
	if err := c.client.Set(ctx, lastSeenKey(userID), seen.UTC().Format(time.RFC3339Nano), lastSeenTTL).Err(); err != nil {
		return fmt.Errorf("set last seen: %w", err)
	}
	return nil
}

// Get returns the user's cached activity time. A missing entry is an error.
func (c *LastSeenCache) Get(ctx context.Context, userID int64) (time.Time, error) {
	raw, err := c.client.Get(ctx, lastSeenKey(userID)).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("get last seen: %w", err)
	}

	seen, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last seen: %w", err)
	}
	return seen, nil
}
