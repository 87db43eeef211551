package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-store/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// configCacheTTL bounds staleness if an invalidation is ever lost.
const configCacheTTL = 5 * time.Minute

// ConfigCache implements ports.ConfigCache. The wallet policy is read on
// every payment; caching it keeps the hot path off Postgres, and Invalidate
// after an admin update makes the next read see fresh policy.
type ConfigCache struct {
	client *goredis.Client
	key    string
}

// NewConfigCache creates a new Redis-backed policy cache.
func NewConfigCache(client *goredis.Client) *ConfigCache {
	return &ConfigCache{
		client: client,
		key:    "wallet:config",
	}
}

// Get returns the cached policy, or nil, nil on a cache miss.
func (c *ConfigCache) Get(ctx context.Context) (*domain.WalletConfig, error) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis config get: %w", err)
	}

	var cfg domain.WalletConfig
	if err := json.Unmarshal(val, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal cached config: %w", err)
	}
	return &cfg, nil
}

// Set caches the policy.
func (c *ConfigCache) Set(ctx context.Context, cfg *domain.WalletConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := c.client.Set(ctx, c.key, payload, configCacheTTL).Err(); err != nil {
		return fmt.Errorf("redis config set: %w", err)
	}
	return nil
}

// Invalidate drops the cached policy.
func (c *ConfigCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis config invalidate: %w", err)
	}
	return nil
}
