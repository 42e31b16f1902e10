package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/observability/metrics"
	"github.com/voxlane/voxlane/internal/quota/domain"
	"github.com/voxlane/voxlane/pkg/db"
	"github.com/voxlane/voxlane/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Enforcer domain.BreachHandler
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	enforcer domain.BreachHandler
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("quota.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		enforcer: p.Enforcer,
		metrics:  p.Metrics,
	}
}

func (s *Service) GetOrInit(ctx context.Context, accountID snowflake.ID, plan string) (*domain.QuotaRecord, error) {
	if accountID == 0 {
		return nil, domain.ErrInvalidAccount
	}

	record, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	plan = normalizePlan(plan)
	maxAssistants, maxCallTime := domain.PlanLimits(plan)
	now := time.Now().UTC()
	record = &domain.QuotaRecord{
		ID:                 s.genID.Generate(),
		AccountID:          accountID,
		Plan:               plan,
		MaxAssistants:      maxAssistants,
		MaxCallTimeSeconds: maxCallTime,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		// Lost a creation race; the winner's record is authoritative.
		if db.IsDuplicateKeyErr(err) {
			return s.repo.FindByAccount(ctx, s.db, accountID)
		}
		return nil, err
	}

	s.log.Info("quota record initialized",
		zap.String("account_id", accountID.String()),
		zap.String("plan", plan),
	)
	return record, nil
}

func (s *Service) IncrementAssistants(ctx context.Context, accountID snowflake.ID, plan string, resourceID string) error {
	if _, err := s.GetOrInit(ctx, accountID, plan); err != nil {
		return err
	}

	newCount, err := s.repo.AdjustAssistants(ctx, s.db, accountID, 1)
	if err != nil {
		return err
	}

	return s.appendEntry(ctx, &domain.LedgerEntry{
		AccountID:      accountID,
		Action:         domain.ActionAssistantCreated,
		ResourceID:     optionalResource(resourceID),
		AssistantDelta: 1,
		Reason:         domain.ReasonUserAction,
		Detail:         datatypes.JSONMap{"current_assistants": newCount},
	})
}

func (s *Service) DecrementAssistants(ctx context.Context, accountID snowflake.ID, resourceID string) error {
	if accountID == 0 {
		return domain.ErrInvalidAccount
	}

	newCount, err := s.repo.AdjustAssistants(ctx, s.db, accountID, -1)
	if err != nil {
		return err
	}

	return s.appendEntry(ctx, &domain.LedgerEntry{
		AccountID:      accountID,
		Action:         domain.ActionAssistantDeleted,
		ResourceID:     optionalResource(resourceID),
		AssistantDelta: -1,
		Reason:         domain.ReasonUserAction,
		Detail:         datatypes.JSONMap{"current_assistants": newCount},
	})
}

func (s *Service) AddCallTime(ctx context.Context, accountID snowflake.ID, plan string, seconds int64, resourceID string) (domain.AddCallTimeResult, error) {
	if accountID == 0 {
		return domain.AddCallTimeResult{}, domain.ErrInvalidAccount
	}
	if seconds <= 0 {
		return domain.AddCallTimeResult{}, domain.ErrInvalidSeconds
	}

	record, err := s.GetOrInit(ctx, accountID, plan)
	if err != nil {
		return domain.AddCallTimeResult{}, err
	}

	newTotal, err := s.repo.AddCallTime(ctx, s.db, accountID, seconds)
	if err != nil {
		return domain.AddCallTimeResult{}, err
	}
	previous := newTotal - seconds

	if err := s.appendEntry(ctx, &domain.LedgerEntry{
		AccountID:     accountID,
		Action:        domain.ActionCallCompleted,
		ResourceID:    optionalResource(resourceID),
		CallTimeDelta: seconds,
		Reason:        domain.ReasonUserAction,
		Detail:        datatypes.JSONMap{"used_call_time_seconds": newTotal},
	}); err != nil {
		return domain.AddCallTimeResult{}, err
	}

	result := domain.AddCallTimeResult{
		PreviousTotal: previous,
		NewTotal:      newTotal,
		Limit:         record.MaxCallTimeSeconds,
	}

	if record.MaxCallTimeSeconds == domain.Unlimited || newTotal <= record.MaxCallTimeSeconds {
		return result, nil
	}

	result.Exceeded = true
	overage := newTotal - record.MaxCallTimeSeconds

	if err := s.appendEntry(ctx, &domain.LedgerEntry{
		AccountID:     accountID,
		Action:        domain.ActionLimitExceeded,
		ResourceID:    optionalResource(resourceID),
		CallTimeDelta: 0,
		Reason:        domain.ReasonLimitExceeded,
		Detail: datatypes.JSONMap{
			"previous_total": previous,
			"new_total":      newTotal,
			"limit":          record.MaxCallTimeSeconds,
			"overage":        overage,
		},
	}); err != nil {
		return result, err
	}

	if s.metrics != nil {
		s.metrics.QuotaBreaches.WithLabelValues(record.Plan).Inc()
	}
	s.log.Warn("call time quota exceeded",
		zap.String("account_id", accountID.String()),
		zap.Int64("new_total", newTotal),
		zap.Int64("limit", record.MaxCallTimeSeconds),
		zap.Int64("overage", overage),
	)

	// Enforcement runs synchronously; its failure leaves the breach on the
	// ledger for the next trigger or manual intervention.
	outcome, err := s.enforcer.HandleBreach(ctx, domain.BreachReport{
		AccountID:     accountID,
		Plan:          record.Plan,
		PreviousTotal: previous,
		NewTotal:      newTotal,
		Limit:         record.MaxCallTimeSeconds,
		Overage:       overage,
	})
	result.Enforcement = outcome
	if err != nil {
		return result, err
	}

	return result, nil
}

func (s *Service) ResetCallTimeUsage(ctx context.Context, accountID snowflake.ID) error {
	if accountID == 0 {
		return domain.ErrInvalidAccount
	}

	record, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return err
	}
	if record == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.ResetCallTime(ctx, s.db, accountID); err != nil {
		return err
	}

	return s.appendEntry(ctx, &domain.LedgerEntry{
		AccountID:     accountID,
		Action:        domain.ActionBillingCycleReset,
		CallTimeDelta: -record.UsedCallTimeSeconds,
		Reason:        domain.ReasonAutoReset,
		Detail:        datatypes.JSONMap{"previous_total": record.UsedCallTimeSeconds},
	})
}

func (s *Service) CanCreateAssistant(ctx context.Context, accountID snowflake.ID, plan string) (domain.CreateCheck, error) {
	record, err := s.GetOrInit(ctx, accountID, plan)
	if err != nil {
		return domain.CreateCheck{}, err
	}

	if record.MaxAssistants == domain.Unlimited {
		return domain.CreateCheck{
			Allowed:   true,
			Current:   record.CurrentAssistants,
			Max:       domain.Unlimited,
			Remaining: domain.Unlimited,
		}, nil
	}

	remaining := record.MaxAssistants - record.CurrentAssistants
	if remaining < 0 {
		remaining = 0
	}
	return domain.CreateCheck{
		Allowed:   record.CurrentAssistants < record.MaxAssistants,
		Current:   record.CurrentAssistants,
		Max:       record.MaxAssistants,
		Remaining: remaining,
	}, nil
}

func (s *Service) GetLimits(ctx context.Context, accountID snowflake.ID, plan string) (domain.LimitsView, error) {
	record, err := s.GetOrInit(ctx, accountID, plan)
	if err != nil {
		return domain.LimitsView{}, err
	}

	view := domain.LimitsView{QuotaRecord: *record}

	if record.MaxAssistants == domain.Unlimited {
		view.RemainingAssistants = domain.Unlimited
	} else {
		view.RemainingAssistants = record.MaxAssistants - record.CurrentAssistants
		if view.RemainingAssistants < 0 {
			view.RemainingAssistants = 0
		}
		if record.MaxAssistants > 0 {
			view.AssistantUsagePct = float64(record.CurrentAssistants) / float64(record.MaxAssistants) * 100
		}
	}

	if record.MaxCallTimeSeconds == domain.Unlimited {
		view.RemainingCallTimeSeconds = domain.Unlimited
	} else {
		view.RemainingCallTimeSeconds = record.MaxCallTimeSeconds - record.UsedCallTimeSeconds
		if view.RemainingCallTimeSeconds < 0 {
			view.RemainingCallTimeSeconds = 0
		}
		if record.MaxCallTimeSeconds > 0 {
			view.CallTimeUsagePct = float64(record.UsedCallTimeSeconds) / float64(record.MaxCallTimeSeconds) * 100
		}
	}

	return view, nil
}

func (s *Service) ListLedger(ctx context.Context, req domain.ListLedgerRequest) (domain.ListLedgerResponse, error) {
	if req.AccountID == 0 {
		return domain.ListLedgerResponse{}, domain.ErrInvalidAccount
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	var cursor *domain.LedgerCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListLedgerResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListLedgerResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListLedgerResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.LedgerCursor{ID: id, CreatedAt: createdAt}
	}

	items, err := s.repo.ListEntries(ctx, s.db, req.AccountID, domain.ListLedgerFilter{
		Action: strings.TrimSpace(req.Action),
		Reason: strings.TrimSpace(req.Reason),
		Cursor: cursor,
		Limit:  int(pageSize),
	})
	if err != nil {
		return domain.ListLedgerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(entry *domain.LedgerEntry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        entry.ID.String(),
			CreatedAt: entry.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	entries := make([]domain.LedgerEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}

	resp := domain.ListLedgerResponse{Entries: entries}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) appendEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	entry.ID = s.genID.Generate()
	entry.CreatedAt = time.Now().UTC()
	if err := s.repo.AppendEntry(ctx, s.db, entry); err != nil {
		s.log.Error("failed to append ledger entry",
			zap.String("account_id", entry.AccountID.String()),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case domain.PlanPro:
		return domain.PlanPro
	case domain.PlanBusiness:
		return domain.PlanBusiness
	case domain.PlanEnterprise:
		return domain.PlanEnterprise
	default:
		return domain.PlanFree
	}
}

func optionalResource(resourceID string) *string {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil
	}
	return &resourceID
}
