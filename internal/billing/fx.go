package billing

import (
	"go.uber.org/fx"

	"github.com/nivalabs/creditgate/internal/billing/service"
)

var Module = fx.Options(
	fx.Provide(service.NewService),
)
