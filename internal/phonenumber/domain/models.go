// Package domain contains the phone number model and service contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PhoneNumber is a carrier number owned by an account and assigned to at
// most one assistant at a time.
type PhoneNumber struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	AccountID        snowflake.ID  `gorm:"not null;index" json:"account_id"`
	AssistantID      *snowflake.ID `gorm:"index" json:"assistant_id,omitempty"`
	ProviderNumberID string        `gorm:"not null" json:"provider_number_id"`
	Number           string        `gorm:"not null" json:"number"`
	Carrier          string        `gorm:"not null;default:twilio" json:"carrier"`
	CreatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PhoneNumber) TableName() string { return "phone_numbers" }
