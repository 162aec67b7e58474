package cache

import (
	"context"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// The keys namespace is organized as `/<prefix>/cache/<key>`
type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache returns cache backed by the Redis client,
// zero ttl keeps the values without expiration.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) Cache {
	return &redisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Dial connects to Redis by URL, for example redis://localhost:6379/0
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Redis URL")
	}
	client := redis.NewClient(options)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}
	return client, nil
}

func (m *redisCache) getRedisKey(key string) string {
	return path.Join("/", m.prefix, "cache", key)
}

func (m *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := m.client.Get(ctx, m.getRedisKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "failed to get value from Redis")
	}
	return data, true, nil
}

func (m *redisCache) Set(ctx context.Context, key, value string) error {
	err := m.client.Set(ctx, m.getRedisKey(key), value, m.ttl).Err()
	if err != nil {
		return errors.Wrap(err, "failed to store value in Redis")
	}
	return nil
}
