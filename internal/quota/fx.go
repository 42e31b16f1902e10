package quota

import (
	"github.com/voxlane/voxlane/internal/quota/repository"
	"github.com/voxlane/voxlane/internal/quota/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quota.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
