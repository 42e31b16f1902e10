package phonenumber

import (
	"github.com/voxlane/voxlane/internal/phonenumber/repository"
	"github.com/voxlane/voxlane/internal/phonenumber/service"
	"go.uber.org/fx"
)

var Module = fx.Module("phonenumber.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
