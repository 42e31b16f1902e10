// Package domain contains call log persistence models and contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CallLog is one completed call. Rows are written once and never
// updated; duration feeds the account's call-time quota.
type CallLog struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID       snowflake.ID `gorm:"not null;index" json:"account_id"`
	AssistantID     snowflake.ID `gorm:"not null;index" json:"assistant_id"`
	ProviderCallID  string       `json:"provider_call_id"`
	DurationSeconds int64        `gorm:"not null" json:"duration_seconds"`
	Status          string       `gorm:"not null;default:completed" json:"status"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	EndedAt         *time.Time   `json:"ended_at,omitempty"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CallLog) TableName() string { return "call_logs" }
