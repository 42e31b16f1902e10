package enforcement

import (
	"context"

	"github.com/voxlane/voxlane/internal/enforcement/domain"
	"github.com/voxlane/voxlane/internal/enforcement/service"
	"github.com/voxlane/voxlane/internal/lock"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	"go.uber.org/fx"
)

// breachAdapter lets the quota service trigger enforcement without
// depending on this package.
type breachAdapter struct {
	svc domain.Service
}

func (a *breachAdapter) HandleBreach(ctx context.Context, report quotadomain.BreachReport) (*quotadomain.EnforcementOutcome, error) {
	result, err := a.svc.HandleBreach(ctx, report)
	return result.Outcome(), err
}

var Module = fx.Module("enforcement.service",
	fx.Provide(lock.NewLockerFromConfig),
	fx.Provide(service.New),
	fx.Provide(func(svc domain.Service) quotadomain.BreachHandler {
		return &breachAdapter{svc: svc}
	}),
)
