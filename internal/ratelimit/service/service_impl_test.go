package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nivalabs/creditgate/internal/clock"
	ratelimitdomain "github.com/nivalabs/creditgate/internal/ratelimit/domain"
	"github.com/nivalabs/creditgate/internal/ratelimit/service"
)

func newLimiter(t *testing.T, cfg *ratelimitdomain.Config, fake *clock.Fake) (ratelimitdomain.Limiter, *miniredis.Miniredis) {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})

	return service.NewService(service.ServiceParam{
		Redis:  rdb,
		Log:    zap.NewNop(),
		Config: cfg,
		Clock:  fake,
	}), s
}

func TestAllow_EnforcesWindowBudget(t *testing.T) {
	cfg := &ratelimitdomain.Config{Enabled: true}
	fake := clock.NewFake(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))
	limiter, s := newLimiter(t, cfg, fake)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.NoError(t, limiter.Allow(ctx, "auth", "203.0.113.9", 5, time.Minute))
	}

	err := limiter.Allow(ctx, "auth", "203.0.113.9", 5, time.Minute)
	assert.ErrorIs(t, err, ratelimitdomain.ErrRateLimited)

	keys := s.Keys()
	assert.Len(t, keys, 1)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	cfg := &ratelimitdomain.Config{Enabled: true}
	fake := clock.NewFake(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))
	limiter, _ := newLimiter(t, cfg, fake)

	ctx := context.Background()
	require.NoError(t, limiter.Allow(ctx, "auth", "203.0.113.9", 1, time.Minute))
	require.ErrorIs(t, limiter.Allow(ctx, "auth", "203.0.113.9", 1, time.Minute), ratelimitdomain.ErrRateLimited)

	// Other client and other scope still have full budget.
	assert.NoError(t, limiter.Allow(ctx, "auth", "198.51.100.4", 1, time.Minute))
	assert.NoError(t, limiter.Allow(ctx, "admin", "203.0.113.9", 1, time.Minute))
}

func TestAllow_CounterResetsOnNextWindow(t *testing.T) {
	cfg := &ratelimitdomain.Config{Enabled: true}
	fake := clock.NewFake(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))
	limiter, _ := newLimiter(t, cfg, fake)

	ctx := context.Background()
	require.NoError(t, limiter.Allow(ctx, "admin", "7", 1, time.Minute))
	require.ErrorIs(t, limiter.Allow(ctx, "admin", "7", 1, time.Minute), ratelimitdomain.ErrRateLimited)

	fake.Advance(time.Minute)
	assert.NoError(t, limiter.Allow(ctx, "admin", "7", 1, time.Minute))
}

func TestAllow_Disabled(t *testing.T) {
	cfg := &ratelimitdomain.Config{Enabled: false}
	fake := clock.NewFake(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))
	limiter, s := newLimiter(t, cfg, fake)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.Allow(ctx, "auth", "203.0.113.9", 1, time.Minute))
	}
	assert.Empty(t, s.Keys())
}

func TestAllow_FailsOpenOnRedisError(t *testing.T) {
	cfg := &ratelimitdomain.Config{Enabled: true}
	fake := clock.NewFake(time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))

	s, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	s.Close()

	limiter := service.NewService(service.ServiceParam{
		Redis:  rdb,
		Log:    zap.NewNop(),
		Config: cfg,
		Clock:  fake,
	})

	assert.NoError(t, limiter.Allow(context.Background(), "auth", "203.0.113.9", 1, time.Minute))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "false")
	t.Setenv("RATELIMIT_AUTH_ATTEMPTS", "3")
	t.Setenv("RATELIMIT_ADMIN_WINDOW", "90s")

	cfg := ratelimitdomain.LoadFromEnv()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.AuthAttempts)
	assert.Equal(t, 90*time.Second, cfg.AdminWindow)
	assert.Equal(t, time.Minute, cfg.AuthWindow)
	assert.Equal(t, 200, cfg.AdminOps)
}
