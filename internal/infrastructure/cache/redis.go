package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/usecase/session"
	"github.com/johnquangdev/meetcore/pkg/config"
)

const profileKeyPrefix = "meetcore:profile:"

// NewRedisClient creates a new Redis client and checks the connection
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.GetRedisAddr(), err)
	}
	return client, nil
}

// RedisProfileCache keeps enriched profiles in Redis so every instance shares them
type RedisProfileCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

var _ session.ProfileCache = (*RedisProfileCache)(nil)

// NewRedisProfileCache creates a new RedisProfileCache
func NewRedisProfileCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: ttl, logger: logger}
}

// Get returns a cached profile. Redis errors count as a miss.
func (c *RedisProfileCache) Get(ctx context.Context, userID string) (entities.Profile, bool) {
	raw, err := c.client.Get(ctx, profileKeyPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.Warn("Profile cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
		return entities.Profile{}, false
	}

	var p entities.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return entities.Profile{}, false
	}
	return p, true
}

// Set stores a profile with the configured TTL
func (c *RedisProfileCache) Set(ctx context.Context, userID string, profile entities.Profile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, profileKeyPrefix+userID, raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("Profile cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
}
