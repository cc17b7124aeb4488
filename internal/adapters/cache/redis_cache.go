package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/poultryops/settlement-service/internal/domain"
)

// RedisLeaderboardCache caches leaderboard query results in Redis. A cache
// miss or marshal failure falls back to the database read.
type RedisLeaderboardCache struct {
	client *redis.Client
}

func NewRedisLeaderboardCache(addr string, password string, db int) *RedisLeaderboardCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisLeaderboardCache{client: client}
}

// Client exposes the underlying connection for health checks.
func (c *RedisLeaderboardCache) Client() *redis.Client {
	return c.client
}

func (c *RedisLeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisLeaderboardCache) Close() error {
	return c.client.Close()
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, key string) ([]domain.LeaderboardRow, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rows []domain.LeaderboardRow
	if err := json.Unmarshal([]byte(val), &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, key string, rows []domain.LeaderboardRow, ttl time.Duration) error {
	if len(rows) == 0 {
		return nil
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
