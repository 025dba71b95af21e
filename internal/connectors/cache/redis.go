// Package cache keeps the last successfully fetched snapshot in Redis so a
// restarted instance can serve stale-but-available data before its first
// fetch cycle completes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mwengren/glider-dac-status/internal/dacstatus"
)

const snapshotKey = "glider_dac_status:last_snapshot"

// SnapshotCache stores the last good snapshot in Redis.
type SnapshotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewSnapshotCache(addr, password string, db int, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SnapshotCache{
		redis: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (c *SnapshotCache) Enabled() bool {
	return c != nil && c.redis != nil
}

func (c *SnapshotCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.redis.Close()
}

// Store replaces the cached snapshot. The TTL keeps a dead deployment from
// serving arbitrarily old data forever.
func (c *SnapshotCache) Store(ctx context.Context, snap *dacstatus.Snapshot) error {
	if !c.Enabled() || snap == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.redis.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot in redis: %w", err)
	}
	return nil
}

// Load returns the cached snapshot, or nil when none exists.
func (c *SnapshotCache) Load(ctx context.Context) (*dacstatus.Snapshot, error) {
	if !c.Enabled() {
		return nil, nil
	}

	data, err := c.redis.Get(ctx, snapshotKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot from redis: %w", err)
	}

	var snap dacstatus.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal cached snapshot: %w", err)
	}
	return &snap, nil
}

// Ping checks Redis reachability for the services status view.
func (c *SnapshotCache) Ping(ctx context.Context) (int64, error) {
	if !c.Enabled() {
		return 0, fmt.Errorf("redis cache disabled")
	}
	start := time.Now()
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return 0, err
	}
	return time.Since(start).Milliseconds(), nil
}
