// Package cache publishes periodic stats snapshots to an optional
// external Redis cache and backs the health_check action's external-cache
// probe. It never sits on the request path: every call here is best
// effort and logs rather than propagates failure.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"socketpoold/internal/config"
	"socketpoold/internal/stats"
)

const (
	snapshotTTL   = 300 * time.Second
	historyListKey = "socket_pool:metrics:history"
	historyMaxLen  = 1000
	opTimeout      = 2 * time.Second
)

// Client wraps the external cache connection. Grounded on
// pkg/db/redis/redis.go's Init pattern, ported to go-redis/v9 (the
// teacher's own hook.go already targets v9; this drops the duplicate v6
// client entirely, per the go.mod reconciliation).
type Client struct {
	rdb *redis.Client
}

// New builds a Client from the daemon's Redis config. The caller is
// responsible for checking cfg.Enabled first.
func New(cfg config.RedisConfig) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return &Client{rdb: rdb}
}

// Ping reports whether the cache is reachable; used by the health_check
// action and never blocks it beyond opTimeout.
func (c *Client) Ping() bool {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err() == nil
}

// PublishSnapshot stores the latest stats.Sample under an instance-keyed
// entry (300s TTL) and appends it to a bounded history list, trimmed to
// historyMaxLen entries.
func (c *Client) PublishSnapshot(sample stats.Sample) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	body, err := json.Marshal(sample)
	if err != nil {
		zap.L().Warn("cache: failed to marshal snapshot", zap.Error(err))
		return
	}

	key := fmt.Sprintf("socket_pool:metrics:%s", sample.Instance)
	if err := c.rdb.Set(ctx, key, body, snapshotTTL).Err(); err != nil {
		zap.L().Warn("cache: snapshot publish failed", zap.Error(err))
		return
	}

	if err := c.rdb.LPush(ctx, historyListKey, body).Err(); err != nil {
		zap.L().Warn("cache: history append failed", zap.Error(err))
		return
	}
	_ = c.rdb.LTrim(ctx, historyListKey, 0, historyMaxLen-1).Err()
}

// Clear removes the bounded history list; backs the poolctl cache:clear
// admin operation.
func (c *Client) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.rdb.Del(ctx, historyListKey).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
