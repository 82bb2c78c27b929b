package ratelimit

import (
	"go.uber.org/fx"

	"github.com/nivalabs/creditgate/internal/ratelimit/domain"
	"github.com/nivalabs/creditgate/internal/ratelimit/service"
)

var Module = fx.Options(
	fx.Provide(domain.LoadFromEnv),
	fx.Provide(service.NewService),
)
