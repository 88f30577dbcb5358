package tenant

import (
	"go.uber.org/fx"

	"github.com/innkeephq/innkeep/internal/tenant/repository"
	"github.com/innkeephq/innkeep/internal/tenant/service"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
