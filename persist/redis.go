package persist

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cart/coupon/profile snapshots in Redis. Keys are plain
// strings ("cart:<userid>" etc.); values are JSON blobs written by the engine.
type RedisStore struct {
	conn *redis.Client
}

// NewRedisStore connects using REDIS_ADDR / REDIS_PASSWORD from the
// environment, defaulting to a local instance.
func NewRedisStore() *RedisStore {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return &RedisStore{conn: conn}
}

// NewRedisStoreWithClient wraps an existing client, mainly for tests.
func NewRedisStoreWithClient(conn *redis.Client) *RedisStore {
	return &RedisStore{conn: conn}
}

func (s *RedisStore) Load(ctx context.Context, key string) (string, bool, error) {
	val, err := s.conn.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key, value string) error {
	return s.conn.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	return s.conn.Del(ctx, key).Err()
}

// Ping checks the connection on startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx).Err()
}
