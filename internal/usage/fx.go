package usage

import (
	"github.com/nivalabs/creditgate/internal/usage/repository"
	"github.com/nivalabs/creditgate/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
