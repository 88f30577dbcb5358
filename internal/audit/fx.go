package audit

import (
	"go.uber.org/fx"

	"github.com/innkeephq/innkeep/internal/audit/repository"
	"github.com/innkeephq/innkeep/internal/audit/service"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
