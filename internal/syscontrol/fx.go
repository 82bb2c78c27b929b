package syscontrol

import (
	"github.com/nivalabs/creditgate/internal/syscontrol/repository"
	"github.com/nivalabs/creditgate/internal/syscontrol/service"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
