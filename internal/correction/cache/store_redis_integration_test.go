//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/samply/directory-sync-service-sub000/internal/correction/cache"
	"github.com/samply/directory-sync-service-sub000/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *cache.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = cache.NewRedis(s.redis.Client, time.Minute, logger)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()

	_, ok := s.store.Get(ctx, "urn:miriam:icd:C50")
	s.False(ok)

	s.store.Set(ctx, "urn:miriam:icd:C50", true)
	valid, ok := s.store.Get(ctx, "urn:miriam:icd:C50")
	s.True(ok)
	s.True(valid)

	s.store.Set(ctx, "urn:miriam:icd:ZZZ", false)
	valid, ok = s.store.Get(ctx, "urn:miriam:icd:ZZZ")
	s.True(ok)
	s.False(valid)
}

func (s *RedisStoreSuite) TestEntriesCarryTTL() {
	ctx := context.Background()
	s.store.Set(ctx, "urn:miriam:icd:C50", true)

	ttl := s.redis.Client.TTL(ctx, "dsync:codevalid:urn:miriam:icd:C50").Val()
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}
