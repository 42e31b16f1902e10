package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	assistantdomain "github.com/voxlane/voxlane/internal/assistant/domain"
	"github.com/voxlane/voxlane/internal/calllog/domain"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	"github.com/voxlane/voxlane/pkg/db/pagination"
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
	Quota         quotadomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	assistantRepo assistantdomain.Repository
	quota         quotadomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("calllog.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		assistantRepo: p.AssistantRepo,
		quota:         p.Quota,
	}
}

func (s *Service) RecordCompleted(ctx context.Context, req domain.RecordCompletedRequest) (*domain.RecordCompletedResponse, error) {
	if req.DurationSeconds <= 0 {
		return nil, domain.ErrInvalidDuration
	}
	assistantID, err := snowflake.ParseString(strings.TrimSpace(req.AssistantID))
	if err != nil {
		return nil, domain.ErrAssistantNotFound
	}
	assistant, err := s.assistantRepo.FindByID(ctx, s.db, req.AccountID, assistantID)
	if err != nil {
		return nil, err
	}
	if assistant == nil {
		return nil, domain.ErrAssistantNotFound
	}

	entry := &domain.CallLog{
		ID:              s.genID.Generate(),
		AccountID:       req.AccountID,
		AssistantID:     assistantID,
		ProviderCallID:  strings.TrimSpace(req.ProviderCallID),
		DurationSeconds: req.DurationSeconds,
		Status:          "completed",
		StartedAt:       req.StartedAt,
		EndedAt:         req.EndedAt,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		return nil, err
	}

	// The quota add runs after the log row exists: a breach triggered
	// here is attributable to a concrete call.
	result, err := s.quota.AddCallTime(ctx, req.AccountID, req.Plan, req.DurationSeconds, entry.ID.String())
	if err != nil {
		return &domain.RecordCompletedResponse{Log: *entry, Quota: result}, err
	}

	return &domain.RecordCompletedResponse{Log: *entry, Quota: result}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := domain.ListFilter{Limit: int(pageSize)}
	if strings.TrimSpace(req.AssistantID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.AssistantID))
		if err != nil {
			return domain.ListResponse{}, domain.ErrAssistantNotFound
		}
		filter.AssistantID = id
	}
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = &domain.Cursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.List(ctx, s.db, req.AccountID, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(log *domain.CallLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        log.ID.String(),
			CreatedAt: log.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	calls := make([]domain.CallLog, 0, len(items))
	for _, item := range items {
		calls = append(calls, *item)
	}

	resp := domain.ListResponse{Calls: calls}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Analytics(ctx context.Context, accountID snowflake.ID) (domain.AnalyticsView, error) {
	totals, err := s.repo.Totals(ctx, s.db, accountID)
	if err != nil {
		return domain.AnalyticsView{}, err
	}
	perAssistant, err := s.repo.AggregateByAssistant(ctx, s.db, accountID)
	if err != nil {
		return domain.AnalyticsView{}, err
	}

	view := domain.AnalyticsView{
		TotalCalls:           totals.Calls,
		TotalDurationSeconds: totals.TotalDurationSeconds,
		PerAssistant:         perAssistant,
	}
	if totals.Calls > 0 {
		view.AvgDurationSeconds = float64(totals.TotalDurationSeconds) / float64(totals.Calls)
	}
	return view, nil
}
