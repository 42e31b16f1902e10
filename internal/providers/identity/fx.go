package identity

import (
	"github.com/voxlane/voxlane/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.identity",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Resolver {
	return NewHTTPResolver(cfg.Identity)
}
