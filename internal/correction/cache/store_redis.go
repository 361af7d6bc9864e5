package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dsync:codevalid:"

// RedisStore shares validity answers across service instances. Lookups and
// writes fail soft: a Redis outage only costs extra validator calls.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis-backed cache with the given entry TTL.
func NewRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, code string) (bool, bool) {
	val, err := s.client.Get(ctx, redisKeyPrefix+code).Result()
	if err != nil {
		if err != redis.Nil && s.logger != nil {
			s.logger.Warn("validity cache lookup failed", "error", err)
		}
		return false, false
	}
	return val == "1", true
}

func (s *RedisStore) Set(ctx context.Context, code string, valid bool) {
	val := "0"
	if valid {
		val = "1"
	}
	if err := s.client.Set(ctx, redisKeyPrefix+code, val, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Warn("validity cache write failed", "error", err)
	}
}
