package calllog

import (
	"github.com/voxlane/voxlane/internal/calllog/repository"
	"github.com/voxlane/voxlane/internal/calllog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("calllog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
