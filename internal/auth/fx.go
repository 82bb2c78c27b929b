package auth

import (
	"go.uber.org/fx"

	"github.com/nivalabs/creditgate/internal/auth/service"
)

var Module = fx.Options(
	fx.Provide(service.NewService),
)
