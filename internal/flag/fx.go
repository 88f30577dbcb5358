package flag

import (
	"go.uber.org/fx"

	"github.com/innkeephq/innkeep/internal/flag/service"
)

var Module = fx.Module("flag.service",
	fx.Provide(service.New),
)
