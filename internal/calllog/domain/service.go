package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
	"github.com/voxlane/voxlane/pkg/db/pagination"
)

type RecordCompletedRequest struct {
	AccountID       snowflake.ID `json:"-"`
	Plan            string       `json:"-"`
	AssistantID     string       `json:"assistant_id" binding:"required"`
	ProviderCallID  string       `json:"provider_call_id"`
	DurationSeconds int64        `json:"duration_seconds" binding:"required"`
	StartedAt       *time.Time   `json:"started_at"`
	EndedAt         *time.Time   `json:"ended_at"`
}

// RecordCompletedResponse carries the stored log plus the quota outcome,
// including whether the call pushed the account over its limit.
type RecordCompletedResponse struct {
	Log   CallLog                       `json:"log"`
	Quota quotadomain.AddCallTimeResult `json:"quota"`
}

type ListRequest struct {
	AccountID   snowflake.ID
	AssistantID string
	PageToken   string
	PageSize    int32
}

type ListResponse struct {
	pagination.PageInfo
	Calls []CallLog `json:"calls"`
}

// AnalyticsView is the usage rollup for the analytics endpoint.
type AnalyticsView struct {
	TotalCalls           int64                `json:"total_calls"`
	TotalDurationSeconds int64                `json:"total_duration_seconds"`
	AvgDurationSeconds   float64              `json:"avg_duration_seconds"`
	PerAssistant         []AssistantAggregate `json:"per_assistant"`
}

type Service interface {
	// RecordCompleted stores the call and feeds its duration into the
	// quota store. A breach triggered by this call runs enforcement
	// before the response returns.
	RecordCompleted(ctx context.Context, req RecordCompletedRequest) (*RecordCompletedResponse, error)

	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Analytics(ctx context.Context, accountID snowflake.ID) (AnalyticsView, error)
}

var (
	ErrInvalidDuration   = errors.New("invalid_call_duration")
	ErrAssistantNotFound = errors.New("call_assistant_not_found")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
)
