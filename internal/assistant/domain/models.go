// Package domain contains the assistant model and service contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Assistant is one AI phone-call assistant owned by an account. The
// provider-side record is referenced by ProviderAssistantID.
type Assistant struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID           snowflake.ID `gorm:"not null;index" json:"account_id"`
	ProviderAssistantID string       `gorm:"not null" json:"provider_assistant_id"`
	Name                string       `gorm:"not null" json:"name"`
	Model               string       `gorm:"not null" json:"model"`
	Voice               string       `json:"voice"`
	Transcriber         string       `json:"transcriber"`
	Prompt              string       `gorm:"type:text" json:"prompt"`
	MaxDurationSeconds  int          `gorm:"not null;default:0" json:"max_duration_seconds"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Assistant) TableName() string { return "assistants" }
