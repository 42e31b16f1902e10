package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/assistant/domain"
	phonedomain "github.com/voxlane/voxlane/internal/phonenumber/domain"
	"github.com/voxlane/voxlane/internal/providers/voice"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	PhoneRepo phonedomain.Repository
	Quota     quotadomain.Service
	Voice     voice.Client
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	phoneRepo phonedomain.Repository
	quota     quotadomain.Service
	voice     voice.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("assistant.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		phoneRepo: p.PhoneRepo,
		quota:     p.Quota,
		voice:     p.Voice,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Assistant, error) {
	if req.AccountID == 0 || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Model) == "" {
		return nil, domain.ErrInvalidInput
	}

	check, err := s.quota.CanCreateAssistant(ctx, req.AccountID, req.Plan)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		s.log.Info("assistant creation blocked by plan limit",
			zap.String("account_id", req.AccountID.String()),
			zap.Int("current", check.Current),
			zap.Int("max", check.Max),
		)
		return nil, domain.ErrLimitReached
	}

	created, err := s.voice.CreateAssistant(ctx, voice.AssistantParams{
		Name:               req.Name,
		Model:              req.Model,
		Voice:              req.Voice,
		Transcriber:        req.Transcriber,
		Prompt:             req.Prompt,
		MaxDurationSeconds: req.MaxDurationSeconds,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	assistant := &domain.Assistant{
		ID:                  s.genID.Generate(),
		AccountID:           req.AccountID,
		ProviderAssistantID: created.ID,
		Name:                req.Name,
		Model:               req.Model,
		Voice:               req.Voice,
		Transcriber:         req.Transcriber,
		Prompt:              req.Prompt,
		MaxDurationSeconds:  req.MaxDurationSeconds,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Insert(ctx, s.db, assistant); err != nil {
		// Roll back the provider record so a storage failure does not
		// leak a billable orphan.
		if rbErr := s.voice.DeleteAssistant(ctx, created.ID); rbErr != nil {
			s.log.Error("failed to roll back provider assistant",
				zap.String("provider_assistant_id", created.ID),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}

	if err := s.quota.IncrementAssistants(ctx, req.AccountID, req.Plan, assistant.ID.String()); err != nil {
		return nil, err
	}

	return assistant, nil
}

func (s *Service) List(ctx context.Context, accountID snowflake.ID) ([]domain.Assistant, error) {
	rows, err := s.repo.ListByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	assistants := make([]domain.Assistant, 0, len(rows))
	for _, row := range rows {
		assistants = append(assistants, *row)
	}
	return assistants, nil
}

func (s *Service) GetByID(ctx context.Context, accountID, id snowflake.ID) (*domain.Assistant, error) {
	assistant, err := s.repo.FindByID(ctx, s.db, accountID, id)
	if err != nil {
		return nil, err
	}
	if assistant == nil {
		return nil, domain.ErrNotFound
	}
	return assistant, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Assistant, error) {
	assistant, err := s.GetByID(ctx, req.AccountID, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, domain.ErrInvalidInput
		}
		assistant.Name = *req.Name
	}
	if req.Model != nil {
		if strings.TrimSpace(*req.Model) == "" {
			return nil, domain.ErrInvalidInput
		}
		assistant.Model = *req.Model
	}
	if req.Voice != nil {
		assistant.Voice = *req.Voice
	}
	if req.Transcriber != nil {
		assistant.Transcriber = *req.Transcriber
	}
	if req.Prompt != nil {
		assistant.Prompt = *req.Prompt
	}
	if req.MaxDurationSeconds != nil {
		assistant.MaxDurationSeconds = *req.MaxDurationSeconds
	}

	if err := s.voice.UpdateAssistant(ctx, assistant.ProviderAssistantID, voice.AssistantParams{
		Name:               assistant.Name,
		Model:              assistant.Model,
		Voice:              assistant.Voice,
		Transcriber:        assistant.Transcriber,
		Prompt:             assistant.Prompt,
		MaxDurationSeconds: assistant.MaxDurationSeconds,
	}); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, s.db, assistant); err != nil {
		return nil, err
	}
	assistant.UpdatedAt = time.Now().UTC()
	return assistant, nil
}

func (s *Service) Delete(ctx context.Context, accountID, id snowflake.ID) error {
	assistant, err := s.GetByID(ctx, accountID, id)
	if err != nil {
		return err
	}

	// Numbers must not dangle at the provider; release them first.
	numbers, err := s.phoneRepo.ListByAssistant(ctx, s.db, accountID, id)
	if err != nil {
		return err
	}
	for _, number := range numbers {
		if err := s.voice.UpdatePhoneNumber(ctx, number.ProviderNumberID, ""); err != nil {
			return err
		}
		if err := s.phoneRepo.SetAssistant(ctx, s.db, accountID, number.ID, nil); err != nil {
			return err
		}
	}

	if err := s.voice.DeleteAssistant(ctx, assistant.ProviderAssistantID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.db, accountID, id); err != nil {
		return err
	}

	return s.quota.DecrementAssistants(ctx, accountID, id.String())
}
