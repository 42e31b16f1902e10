package account

import (
	"github.com/voxlane/voxlane/internal/account/repository"
	"github.com/voxlane/voxlane/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
