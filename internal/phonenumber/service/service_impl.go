package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	assistantdomain "github.com/voxlane/voxlane/internal/assistant/domain"
	"github.com/voxlane/voxlane/internal/phonenumber/domain"
	"github.com/voxlane/voxlane/internal/providers/voice"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	AssistantRepo assistantdomain.Repository
	Voice         voice.Client
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	assistantRepo assistantdomain.Repository
	voice         voice.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("phonenumber.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		assistantRepo: p.AssistantRepo,
		voice:         p.Voice,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.PhoneNumber, error) {
	if req.AccountID == 0 || strings.TrimSpace(req.Number) == "" {
		return nil, domain.ErrInvalidInput
	}
	if strings.TrimSpace(req.TwilioAccountSID) == "" || strings.TrimSpace(req.TwilioAuthToken) == "" {
		return nil, domain.ErrInvalidInput
	}

	var assistantID *snowflake.ID
	var providerAssistantID string
	if strings.TrimSpace(req.AssistantID) != "" {
		id, err := snowflake.ParseString(req.AssistantID)
		if err != nil {
			return nil, domain.ErrAssistantNotFound
		}
		assistant, err := s.assistantRepo.FindByID(ctx, s.db, req.AccountID, id)
		if err != nil {
			return nil, err
		}
		if assistant == nil {
			return nil, domain.ErrAssistantNotFound
		}
		assistantID = &id
		providerAssistantID = assistant.ProviderAssistantID
	}

	created, err := s.voice.CreatePhoneNumber(ctx, voice.PhoneNumberParams{
		Number:           req.Number,
		TwilioAccountSID: req.TwilioAccountSID,
		TwilioAuthToken:  req.TwilioAuthToken,
		AssistantID:      providerAssistantID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	number := &domain.PhoneNumber{
		ID:               s.genID.Generate(),
		AccountID:        req.AccountID,
		AssistantID:      assistantID,
		ProviderNumberID: created.ID,
		Number:           req.Number,
		Carrier:          "twilio",
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, s.db, number); err != nil {
		if rbErr := s.voice.DeletePhoneNumber(ctx, created.ID); rbErr != nil {
			s.log.Error("failed to roll back provider phone number",
				zap.String("provider_number_id", created.ID),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}

	return number, nil
}

func (s *Service) List(ctx context.Context, accountID snowflake.ID) ([]domain.PhoneNumber, error) {
	rows, err := s.repo.ListByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	numbers := make([]domain.PhoneNumber, 0, len(rows))
	for _, row := range rows {
		numbers = append(numbers, *row)
	}
	return numbers, nil
}

func (s *Service) GetByID(ctx context.Context, accountID, id snowflake.ID) (*domain.PhoneNumber, error) {
	number, err := s.repo.FindByID(ctx, s.db, accountID, id)
	if err != nil {
		return nil, err
	}
	if number == nil {
		return nil, domain.ErrNotFound
	}
	return number, nil
}

func (s *Service) Assign(ctx context.Context, accountID, id, assistantID snowflake.ID) (*domain.PhoneNumber, error) {
	number, err := s.GetByID(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	assistant, err := s.assistantRepo.FindByID(ctx, s.db, accountID, assistantID)
	if err != nil {
		return nil, err
	}
	if assistant == nil {
		return nil, domain.ErrAssistantNotFound
	}

	if err := s.voice.UpdatePhoneNumber(ctx, number.ProviderNumberID, assistant.ProviderAssistantID); err != nil {
		return nil, err
	}
	if err := s.repo.SetAssistant(ctx, s.db, accountID, id, &assistantID); err != nil {
		return nil, err
	}

	number.AssistantID = &assistantID
	number.UpdatedAt = time.Now().UTC()
	return number, nil
}

func (s *Service) Release(ctx context.Context, accountID, id snowflake.ID) (*domain.PhoneNumber, error) {
	number, err := s.GetByID(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if number.AssistantID == nil {
		return number, nil
	}

	if err := s.voice.UpdatePhoneNumber(ctx, number.ProviderNumberID, ""); err != nil {
		return nil, err
	}
	if err := s.repo.SetAssistant(ctx, s.db, accountID, id, nil); err != nil {
		return nil, err
	}

	number.AssistantID = nil
	number.UpdatedAt = time.Now().UTC()
	return number, nil
}

func (s *Service) Delete(ctx context.Context, accountID, id snowflake.ID) error {
	number, err := s.GetByID(ctx, accountID, id)
	if err != nil {
		return err
	}

	if err := s.voice.DeletePhoneNumber(ctx, number.ProviderNumberID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, accountID, id)
}
