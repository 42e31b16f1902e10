package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListLedgerFilter struct {
	Action string
	Reason string
	Cursor *LedgerCursor
	Limit  int
}

type LedgerCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// Repository owns all quota record and ledger persistence. The counter
// updates are atomic add-and-return statements; callers never read,
// modify, and write counters in application code.
type Repository interface {
	FindByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*QuotaRecord, error)
	Insert(ctx context.Context, db *gorm.DB, record *QuotaRecord) error

	// AdjustAssistants atomically adds delta to current_assistants,
	// clamping at zero, and returns the new count.
	AdjustAssistants(ctx context.Context, db *gorm.DB, accountID snowflake.ID, delta int) (int, error)

	// AddCallTime atomically adds seconds to used_call_time_seconds and
	// returns the new total.
	AddCallTime(ctx context.Context, db *gorm.DB, accountID snowflake.ID, seconds int64) (int64, error)

	ResetCallTime(ctx context.Context, db *gorm.DB, accountID snowflake.ID) error
	MarkDeletion(ctx context.Context, db *gorm.DB, accountID snowflake.ID, at time.Time) error

	AppendEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	ListEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter ListLedgerFilter) ([]*LedgerEntry, error)
}
