package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	AssistantID snowflake.ID
	Cursor      *Cursor
	Limit       int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// AssistantAggregate is one assistant's share of the account's calls.
type AssistantAggregate struct {
	AssistantID          snowflake.ID `json:"assistant_id"`
	Calls                int64        `json:"calls"`
	TotalDurationSeconds int64        `json:"total_duration_seconds"`
}

// Totals is the account-wide rollup.
type Totals struct {
	Calls                int64 `json:"calls"`
	TotalDurationSeconds int64 `json:"total_duration_seconds"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *CallLog) error
	List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter ListFilter) ([]*CallLog, error)
	Totals(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (Totals, error)
	AggregateByAssistant(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]AssistantAggregate, error)
}
