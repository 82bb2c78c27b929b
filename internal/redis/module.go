package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nivalabs/creditgate/internal/config"
)

var Module = fx.Module("redis",
	fx.Provide(NewClient),
)

// NewClient connects to Redis. Connectivity problems are logged rather than
// fatal because the rate limiter is the only consumer and it fails open.
func NewClient(cfg config.Config, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unreachable, rate limiting disabled until it recovers",
			zap.String("addr", cfg.Redis.Addr),
			zap.Error(err))
	}
	return client
}
