package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nivalabs/creditgate/internal/clock"
	ratelimitdomain "github.com/nivalabs/creditgate/internal/ratelimit/domain"
)

type ServiceParam struct {
	fx.In

	Redis  *redis.Client
	Log    *zap.Logger
	Config *ratelimitdomain.Config
	Clock  clock.Clock
}

type service struct {
	redis *redis.Client
	log   *zap.Logger
	cfg   *ratelimitdomain.Config
	clock clock.Clock
}

func NewService(p ServiceParam) ratelimitdomain.Limiter {
	return &service{
		redis: p.Redis,
		log:   p.Log.Named("ratelimit.service"),
		cfg:   p.Config,
		clock: p.Clock,
	}
}

func (s *service) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) error {
	if !s.cfg.Enabled || limit <= 0 {
		return nil
	}

	// Key: ratelimit:{scope}:{key}:{window_index} so counters reset on a
	// fixed boundary rather than sliding per request.
	bucket := s.clock.Now(ctx).UnixNano() / int64(window)
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", scope, key, bucket)

	val, err := s.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		s.log.Error("failed to increment rate limit counter", zap.Error(err))
		// Fail open to avoid taking the API down on redis error
		return nil
	}

	if val == 1 {
		s.redis.Expire(ctx, redisKey, window+time.Second)
	}

	if val > int64(limit) {
		return ratelimitdomain.ErrRateLimited
	}
	return nil
}
