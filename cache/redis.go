package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	portStr := strconv.Itoa(config.Port)

	addr := config.Host + ":" + portStr
	if config.Port == 0 {
		addr = config.Host + ":6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// MarkNonce records a nonce with SetNX and reports whether it was fresh.
// Used as the replay-guard fast path; the database nonce log stays
// authoritative.
func (c *RedisCache) MarkNonce(ctx context.Context, instanceID, nonce string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("storebridge:nonce:%s:%s", instanceID, nonce)
	return c.client.SetNX(ctx, key, 1, ttl).Result()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
