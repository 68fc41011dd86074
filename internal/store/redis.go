package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Lllllllleong/duediligenceflow/internal/models"
	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "ddreport:"

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisReports caches reports as JSON with a TTL equal to the time left until ExpiresAt.
type RedisReports struct {
	client redisClient
	now    func() time.Time
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisReports(client redisClient) *RedisReports {
	return &RedisReports{client: client, now: time.Now}
}

func redisKey(key ReportKey) string {
	return redisKeyPrefix + key.ID()
}

func (c *RedisReports) Get(ctx context.Context, key ReportKey) (*models.StoredReport, error) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached report %s: %w", key.ID(), err)
	}
	var r models.StoredReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode cached report %s: %w", key.ID(), err)
	}
	if r.Expired(c.now()) {
		return nil, nil
	}
	return &r, nil
}

func (c *RedisReports) Put(ctx context.Context, r *models.StoredReport) error {
	ttl := r.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	key := redisKey(KeyOf(r))
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report %s: %w", key, err)
	}
	return nil
}

func (c *RedisReports) Invalidate(ctx context.Context, entityID string) error {
	var keys []string
	for _, k := range entityKeys(entityID) {
		keys = append(keys, redisKey(k))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached reports of entity %s: %w", entityID, err)
	}
	return nil
}
