package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/account/domain"
	assistantdomain "github.com/voxlane/voxlane/internal/assistant/domain"
	"github.com/voxlane/voxlane/internal/config"
	phonedomain "github.com/voxlane/voxlane/internal/phonenumber/domain"
	"github.com/voxlane/voxlane/internal/providers/voice"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	"github.com/voxlane/voxlane/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config        config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	AssistantRepo assistantdomain.Repository
	PhoneRepo     phonedomain.Repository
	Voice         voice.Client
}

type Service struct {
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	assistantRepo assistantdomain.Repository
	phoneRepo     phonedomain.Repository
	voice         voice.Client
}

func New(p Params) domain.Service {
	return &Service{
		cfg:           p.Config,
		db:            p.DB,
		log:           p.Log.Named("account.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		assistantRepo: p.AssistantRepo,
		phoneRepo:     p.PhoneRepo,
		voice:         p.Voice,
	}
}

func (s *Service) GetOrCreateByExternalID(ctx context.Context, externalID, email string) (*domain.Account, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, domain.ErrInvalidExternalID
	}

	account, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	now := time.Now().UTC()
	expiry := now.Add(s.cfg.DemoDuration)
	account = &domain.Account{
		ID:            s.genID.Generate(),
		ExternalID:    externalID,
		Email:         email,
		Plan:          quotadomain.PlanFree,
		IsDemo:        true,
		DemoExpiresAt: &expiry,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, account); err != nil {
		// Two first requests racing; the winner's row is the account.
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindByExternalID(ctx, s.db, externalID)
		}
		return nil, err
	}

	s.log.Info("account provisioned",
		zap.String("account_id", account.ID.String()),
		zap.String("plan", account.Plan),
		zap.Time("demo_expires_at", expiry),
	)
	return account, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	_, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	// Provider-side cleanup runs numbers-first so no number ever points
	// at a deleted assistant. Failures are logged and skipped: the
	// account removal must always make forward progress.
	numbers, err := s.phoneRepo.ListByAccount(ctx, s.db, id)
	if err != nil {
		return err
	}
	for _, number := range numbers {
		if err := s.voice.DeletePhoneNumber(ctx, number.ProviderNumberID); err != nil {
			s.log.Warn("provider phone number delete failed during account removal",
				zap.String("account_id", id.String()),
				zap.String("provider_number_id", number.ProviderNumberID),
				zap.Error(err),
			)
		}
	}

	assistants, err := s.assistantRepo.ListByAccount(ctx, s.db, id)
	if err != nil {
		return err
	}
	for _, assistant := range assistants {
		if err := s.voice.DeleteAssistant(ctx, assistant.ProviderAssistantID); err != nil {
			s.log.Warn("provider assistant delete failed during account removal",
				zap.String("account_id", id.String()),
				zap.String("provider_assistant_id", assistant.ProviderAssistantID),
				zap.Error(err),
			)
		}
	}

	if err := s.repo.DeleteCascade(ctx, s.db, id); err != nil {
		return err
	}

	s.log.Info("account deleted",
		zap.String("account_id", id.String()),
		zap.Int("assistants", len(assistants)),
		zap.Int("phone_numbers", len(numbers)),
	)
	return nil
}
