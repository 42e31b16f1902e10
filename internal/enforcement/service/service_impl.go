package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	assistantdomain "github.com/voxlane/voxlane/internal/assistant/domain"
	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/enforcement/domain"
	"github.com/voxlane/voxlane/internal/lock"
	"github.com/voxlane/voxlane/internal/observability/metrics"
	phonedomain "github.com/voxlane/voxlane/internal/phonenumber/domain"
	"github.com/voxlane/voxlane/internal/providers/voice"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config        config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	QuotaRepo     quotadomain.Repository
	AssistantRepo assistantdomain.Repository
	PhoneRepo     phonedomain.Repository
	Voice         voice.Client
	Locker        *lock.Locker     `optional:"true"`
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	quotaRepo     quotadomain.Repository
	assistantRepo assistantdomain.Repository
	phoneRepo     phonedomain.Repository
	voice         voice.Client
	locker        *lock.Locker
	metrics       *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:           p.Config,
		db:            p.DB,
		log:           p.Log.Named("enforcement.service"),
		genID:         p.GenID,
		quotaRepo:     p.QuotaRepo,
		assistantRepo: p.AssistantRepo,
		phoneRepo:     p.PhoneRepo,
		voice:         p.Voice,
		locker:        p.Locker,
		metrics:       p.Metrics,
	}
}

// HandleBreach walks the deletion state machine forward: serialize,
// pick the victim, cascade its numbers, delete the victim, adjust
// counters, record the outcome. The only abort edge is the victim's
// provider-side delete failing.
func (s *Service) HandleBreach(ctx context.Context, report quotadomain.BreachReport) (*domain.Result, error) {
	log := s.log.With(
		zap.String("account_id", report.AccountID.String()),
		zap.Int64("new_total", report.NewTotal),
		zap.Int64("limit", report.Limit),
	)

	var lease *lock.Lease
	if s.locker != nil {
		key := "enforcement:" + report.AccountID.String()
		acquired, ok, err := s.locker.Acquire(ctx, key, s.cfg.Enforcement.LockTTL)
		if err != nil {
			// Redis being down must not leave breaches unenforced.
			log.Warn("enforcement lock unavailable, proceeding unlocked", zap.Error(err))
		} else if !ok {
			log.Info("enforcement already in flight for account, skipping")
			s.observeOutcome("skipped")
			return &domain.Result{Skipped: true, CallTimeReset: false}, nil
		} else {
			lease = acquired
			defer func() {
				if err := lease.Release(ctx); err != nil {
					log.Warn("failed to release enforcement lock", zap.Error(err))
				}
			}()
		}
	}

	victim, err := s.assistantRepo.FindOldestByAccount(ctx, s.db, report.AccountID)
	if err != nil {
		return nil, err
	}
	if victim == nil {
		log.Warn("breach with no assistant to delete")
		s.observeOutcome("no_resource")
		return nil, domain.ErrNoResourceToDelete
	}
	log = log.With(zap.String("victim_assistant_id", victim.ID.String()))

	numberResults, err := s.cascadePhoneNumbers(ctx, report.AccountID, victim.ID)
	if err != nil {
		return nil, err
	}

	// The number cascade can eat into the lease when the provider is
	// slow; push the expiry out before the final delete.
	if err := lease.Refresh(ctx); err != nil {
		log.Warn("failed to refresh enforcement lock", zap.Error(err))
	}

	if err := s.voice.DeleteAssistant(ctx, victim.ProviderAssistantID); err != nil {
		log.Error("victim assistant delete failed at provider, aborting", zap.Error(err))
		s.observeOutcome("aborted")
		return nil, fmt.Errorf("%w: %v", domain.ErrAssistantDeleteFailed, err)
	}
	if err := s.assistantRepo.Delete(ctx, s.db, report.AccountID, victim.ID); err != nil {
		return nil, err
	}

	newCount, err := s.quotaRepo.AdjustAssistants(ctx, s.db, report.AccountID, -1)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.quotaRepo.MarkDeletion(ctx, s.db, report.AccountID, now); err != nil {
		return nil, err
	}

	resourceID := victim.ID.String()
	numberDetail := make([]any, 0, len(numberResults))
	for _, nr := range numberResults {
		numberDetail = append(numberDetail, map[string]any{
			"phone_number_id": nr.PhoneNumberID.String(),
			"number":          nr.Number,
			"deleted":         nr.Deleted,
			"error":           nr.Error,
		})
	}
	entry := &quotadomain.LedgerEntry{
		ID:             s.genID.Generate(),
		AccountID:      report.AccountID,
		Action:         quotadomain.ActionAutoDeletionTriggered,
		ResourceID:     &resourceID,
		AssistantDelta: -1,
		Reason:         quotadomain.ReasonLimitExceeded,
		Detail: datatypes.JSONMap{
			"assistant_name":     victim.Name,
			"provider_id":        victim.ProviderAssistantID,
			"phone_numbers":      numberDetail,
			"call_time_reset":    false,
			"current_assistants": newCount,
			"overage_seconds":    report.Overage,
		},
		CreatedAt: now,
	}
	if err := s.quotaRepo.AppendEntry(ctx, s.db, entry); err != nil {
		return nil, err
	}

	log.Info("auto-deletion completed",
		zap.Int("remaining_assistants", newCount),
		zap.Int("phone_numbers_processed", len(numberResults)),
	)
	s.observeOutcome("success")

	return &domain.Result{
		DeletedAssistantID:         victim.ID,
		DeletedProviderAssistantID: victim.ProviderAssistantID,
		DeletedAssistantName:       victim.Name,
		DeletedPhoneNumbers:        numberResults,
		CallTimeReset:              false,
	}, nil
}

// cascadePhoneNumbers deletes each number assigned to the victim,
// provider first. A failed number is recorded and skipped; an orphaned
// number is preferable to an undeletable assistant.
func (s *Service) cascadePhoneNumbers(ctx context.Context, accountID, assistantID snowflake.ID) ([]domain.PhoneNumberResult, error) {
	numbers, err := s.phoneRepo.ListByAssistant(ctx, s.db, accountID, assistantID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.PhoneNumberResult, 0, len(numbers))
	for _, number := range numbers {
		result := domain.PhoneNumberResult{
			PhoneNumberID:    number.ID,
			ProviderNumberID: number.ProviderNumberID,
			Number:           number.Number,
		}

		if err := s.voice.DeletePhoneNumber(ctx, number.ProviderNumberID); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			s.log.Warn("phone number cascade step failed",
				zap.String("account_id", accountID.String()),
				zap.String("phone_number_id", number.ID.String()),
				zap.Error(err),
			)
			if s.metrics != nil {
				s.metrics.PhoneNumberFailures.Inc()
			}
			continue
		}
		if err := s.phoneRepo.Delete(ctx, s.db, accountID, number.ID); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		result.Deleted = true
		results = append(results, result)

		resourceID := number.ID.String()
		entry := &quotadomain.LedgerEntry{
			ID:         s.genID.Generate(),
			AccountID:  accountID,
			Action:     quotadomain.ActionPhoneNumberDeleted,
			ResourceID: &resourceID,
			Reason:     quotadomain.ReasonLimitExceeded,
			Detail: datatypes.JSONMap{
				"number":       number.Number,
				"provider_id":  number.ProviderNumberID,
				"assistant_id": assistantID.String(),
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := s.quotaRepo.AppendEntry(ctx, s.db, entry); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (s *Service) observeOutcome(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.AutoDeletions.WithLabelValues(outcome).Inc()
}
