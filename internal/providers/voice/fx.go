package voice

import (
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.voice",
	fx.Provide(NewFromConfig),
)

// NewFromConfig selects the real client when credentials are present and
// the in-memory fake otherwise, so local development works out of the box.
func NewFromConfig(cfg config.Config, log *zap.Logger, m *metrics.Metrics) Client {
	if cfg.Voice.APIKey == "" {
		log.Warn("voice provider API key missing, using in-memory fake")
		return NewFake()
	}
	return NewHTTPClient(cfg.Voice, log, m)
}
