// Package cache wraps Redis for JSON values and bounded lists.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// ErrCacheMiss is returned when the requested key is not found.
var ErrCacheMiss = errors.New("cache: key not found")

// Key prefixes.
const (
	PrefixLeaderboard = "leaderboard:"
	PrefixChat        = "chat:"
)

// Cache provides JSON caching and bounded lists on top of Redis.
type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg *config.RedisConfig, log *logger.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr(), err)
	}

	log.Info().Str("addr", cfg.Addr()).Int("db", cfg.DB).Msg("Connected to Redis")
	return NewWithClient(client, log), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, log: log}
}

// GetJSON loads key into dest. It returns ErrCacheMiss when the key is absent.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON stores value under key. A zero ttl means no expiration.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Del removes keys.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// PushBounded appends value to the list at key, keeps only the newest limit
// entries and refreshes the list TTL. The three steps run in one MULTI.
func (c *Cache) PushBounded(ctx context.Context, key string, value any, limit int, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if limit > 0 {
			pipe.LTrim(ctx, key, int64(-limit), -1)
		}
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", key, err)
	}
	return nil
}

// Range returns the raw JSON entries of the list at key, oldest first.
func (c *Cache) Range(ctx context.Context, key string) ([][]byte, error) {
	values, err := c.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, []byte(v))
	}
	return out, nil
}

// Health pings Redis.
func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}
