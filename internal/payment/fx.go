package payment

import (
	"github.com/nivalabs/creditgate/internal/payment/repository"
	"github.com/nivalabs/creditgate/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
