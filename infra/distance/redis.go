package distance

import (
	"context"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/cleanbear/dispatch/core/logger"
)

// RedisStore shares the travel-time cache across instances. All failures
// degrade to cache misses.
type RedisStore struct {
	rdb *redis.Client
	log logger.Logger
}

// NewRedisStore connects using a go-redis URL, e.g.
// redis://localhost:6379/0.
func NewRedisStore(url string, log logger.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{rdb: redis.NewClient(opt), log: log}, nil
}

const redisKeyPrefix = "dispatch:travel:"

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (float64, bool) {
	val, err := s.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Debugf("redis get %s: %v", key, err)
		}
		return 0, false
	}
	m, err := strconv.ParseFloat(val, 64)
	if err != nil {
		s.log.Debugf("redis parse %s: %v", key, err)
		return 0, false
	}
	return m, true
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, minutes float64, ttl time.Duration) {
	val := strconv.FormatFloat(minutes, 'f', -1, 64)
	if err := s.rdb.Set(ctx, redisKeyPrefix+key, val, ttl).Err(); err != nil {
		s.log.Debugf("redis set %s: %v", key, err)
	}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
