package plan

import (
	"go.uber.org/fx"

	"github.com/innkeephq/innkeep/internal/plan/limits"
	"github.com/innkeephq/innkeep/internal/plan/repository"
	"github.com/innkeephq/innkeep/internal/plan/service"
)

var Module = fx.Module("plan.service",
	fx.Provide(limits.NewHolder),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
