// Package domain contains the account model and service contracts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Account is one tenant. ExternalID is the identity provider's subject;
// all other entities reference the local snowflake ID.
type Account struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID    string       `gorm:"not null;uniqueIndex" json:"external_id"`
	Email         string       `json:"email"`
	Plan          string       `gorm:"not null;default:free" json:"plan"`
	IsDemo        bool         `gorm:"not null;default:false" json:"is_demo"`
	DemoExpiresAt *time.Time   `json:"demo_expires_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// Expired reports whether a demo account has passed its expiry. Paid
// accounts never expire.
func (a *Account) Expired(now time.Time) bool {
	if !a.IsDemo || a.DemoExpiresAt == nil {
		return false
	}
	return now.After(*a.DemoExpiresAt)
}
