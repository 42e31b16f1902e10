package assistant

import (
	"github.com/voxlane/voxlane/internal/assistant/repository"
	"github.com/voxlane/voxlane/internal/assistant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assistant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
