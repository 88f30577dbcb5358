package usage

import (
	"go.uber.org/fx"

	"github.com/innkeephq/innkeep/internal/usage/service"
)

var Module = fx.Module("usage.service",
	fx.Provide(service.New),
)
