// Package domain contains persistence models for per-account quotas and
// the append-only usage ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Unlimited marks a limit that can never be exceeded.
const Unlimited = -1

// QuotaRecord tracks plan limits and current consumption for one account.
// Counters are mutated only through the repository's atomic updates.
type QuotaRecord struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID           snowflake.ID `gorm:"not null;uniqueIndex" json:"account_id"`
	Plan                string       `gorm:"not null" json:"plan"`
	MaxAssistants       int          `gorm:"not null" json:"max_assistants"`
	MaxCallTimeSeconds  int64        `gorm:"not null" json:"max_call_time_seconds"`
	CurrentAssistants   int          `gorm:"not null;default:0" json:"current_assistants"`
	UsedCallTimeSeconds int64        `gorm:"not null;default:0" json:"used_call_time_seconds"`
	LastDeletionAt      *time.Time   `json:"last_deletion_at,omitempty"`
	DeletionCount       int          `gorm:"not null;default:0" json:"deletion_count"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (QuotaRecord) TableName() string { return "quota_records" }

// LedgerEntry is one quota-affecting action. Entries are append-only and
// are never updated or deleted by the application; only an account cascade
// removes them.
type LedgerEntry struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	AccountID      snowflake.ID      `gorm:"not null;index" json:"account_id"`
	Action         string            `gorm:"not null" json:"action"`
	ResourceID     *string           `gorm:"type:text" json:"resource_id,omitempty"`
	AssistantDelta int               `gorm:"not null;default:0" json:"assistant_delta"`
	CallTimeDelta  int64             `gorm:"not null;default:0" json:"call_time_delta"`
	Reason         string            `gorm:"not null" json:"reason"`
	Detail         datatypes.JSONMap `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "usage_ledger_entries" }

// Ledger action kinds.
const (
	ActionAssistantCreated      = "assistant_created"
	ActionAssistantDeleted      = "assistant_deleted"
	ActionCallCompleted         = "call_completed"
	ActionLimitExceeded         = "limit_exceeded"
	ActionAutoDeletionTriggered = "auto_deletion_triggered"
	ActionPhoneNumberDeleted    = "phone_number_deleted"
	ActionBillingCycleReset     = "billing_cycle_reset"
)

// Ledger trigger reasons.
const (
	ReasonUserAction    = "user_action"
	ReasonLimitExceeded = "limit_exceeded"
	ReasonAutoReset     = "auto_reset"
)

// Plan tiers.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanBusiness   = "business"
	PlanEnterprise = "enterprise"
)

// PlanLimits returns the default limits for a plan tier. Unknown plans
// fall back to free-tier limits.
func PlanLimits(plan string) (maxAssistants int, maxCallTimeSeconds int64) {
	switch plan {
	case PlanPro:
		return 10, 3600
	case PlanBusiness:
		return 50, 18000
	case PlanEnterprise:
		return Unlimited, Unlimited
	default:
		return 2, 600
	}
}
