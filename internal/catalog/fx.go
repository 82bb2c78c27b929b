package catalog

import (
	"github.com/nivalabs/creditgate/internal/catalog/repository"
	"github.com/nivalabs/creditgate/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
