package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/pkg/db/pagination"
)

// AddCallTimeResult reports the outcome of recording call time. When the
// add breached the limit, Enforcement carries what the breach handler did.
type AddCallTimeResult struct {
	PreviousTotal int64               `json:"previous_total"`
	NewTotal      int64               `json:"new_total"`
	Limit         int64               `json:"limit"`
	Exceeded      bool                `json:"limit_exceeded"`
	Enforcement   *EnforcementOutcome `json:"enforcement,omitempty"`
}

// EnforcementOutcome is the caller-facing view of one enforcement run.
// CallTimeReset is always false: a breach is terminal, usage is never
// handed back.
type EnforcementOutcome struct {
	Skipped              bool                  `json:"skipped,omitempty"`
	DeletedAssistantID   snowflake.ID          `json:"deleted_assistant_id,omitempty"`
	DeletedAssistantName string                `json:"deleted_assistant_name,omitempty"`
	DeletedPhoneNumbers  []EnforcedPhoneNumber `json:"deleted_phone_numbers,omitempty"`
	CallTimeReset        bool                  `json:"call_time_reset"`
}

// EnforcedPhoneNumber records one phone number's fate during the cascade.
type EnforcedPhoneNumber struct {
	PhoneNumberID snowflake.ID `json:"phone_number_id"`
	Number        string       `json:"number"`
	Deleted       bool         `json:"deleted"`
	Error         string       `json:"error,omitempty"`
}

// CreateCheck is the limit evaluator's answer for assistant creation.
type CreateCheck struct {
	Allowed   bool `json:"allowed"`
	Current   int  `json:"current"`
	Max       int  `json:"max"`
	Remaining int  `json:"remaining"`
}

// LimitsView is the derived read model for the limits endpoint.
type LimitsView struct {
	QuotaRecord
	RemainingAssistants      int     `json:"remaining_assistants"`
	RemainingCallTimeSeconds int64   `json:"remaining_call_time_seconds"`
	AssistantUsagePct        float64 `json:"assistant_usage_pct"`
	CallTimeUsagePct         float64 `json:"call_time_usage_pct"`
}

// BreachReport describes a call-time quota breach handed to enforcement.
type BreachReport struct {
	AccountID     snowflake.ID
	Plan          string
	PreviousTotal int64
	NewTotal      int64
	Limit         int64
	Overage       int64
}

// BreachHandler is implemented by the enforcement service. AddCallTime
// invokes it synchronously when the new total exceeds the plan limit and
// hands its outcome back to the caller.
type BreachHandler interface {
	HandleBreach(ctx context.Context, report BreachReport) (*EnforcementOutcome, error)
}

type ListLedgerRequest struct {
	AccountID snowflake.ID
	Action    string
	Reason    string
	PageToken string
	PageSize  int32
}

type ListLedgerResponse struct {
	pagination.PageInfo
	Entries []LedgerEntry `json:"entries"`
}

type Service interface {
	// GetOrInit returns the account's quota record, creating it from the
	// plan's default limits on first access.
	GetOrInit(ctx context.Context, accountID snowflake.ID, plan string) (*QuotaRecord, error)

	IncrementAssistants(ctx context.Context, accountID snowflake.ID, plan string, resourceID string) error
	DecrementAssistants(ctx context.Context, accountID snowflake.ID, resourceID string) error

	// AddCallTime records completed call seconds. On breach it appends a
	// limit_exceeded ledger entry and runs enforcement before returning.
	AddCallTime(ctx context.Context, accountID snowflake.ID, plan string, seconds int64, resourceID string) (AddCallTimeResult, error)

	// ResetCallTimeUsage zeroes the call-time counter. Enforcement never
	// calls this: a breach is terminal, not a refillable cap.
	ResetCallTimeUsage(ctx context.Context, accountID snowflake.ID) error

	CanCreateAssistant(ctx context.Context, accountID snowflake.ID, plan string) (CreateCheck, error)
	GetLimits(ctx context.Context, accountID snowflake.ID, plan string) (LimitsView, error)
	ListLedger(ctx context.Context, req ListLedgerRequest) (ListLedgerResponse, error)
}

var (
	ErrInvalidAccount   = errors.New("invalid_account")
	ErrInvalidSeconds   = errors.New("invalid_seconds")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrNotFound         = errors.New("not_found")
)
