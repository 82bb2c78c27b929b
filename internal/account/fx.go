package account

import (
	"github.com/nivalabs/creditgate/internal/account/repository"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(repository.Provide),
)
