package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/quota/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*domain.QuotaRecord, error) {
	var record domain.QuotaRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, account_id, plan, max_assistants, max_call_time_seconds,
		        current_assistants, used_call_time_seconds, last_deletion_at,
		        deletion_count, created_at, updated_at
		 FROM quota_records WHERE account_id = ?`,
		accountID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.QuotaRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO quota_records (
			id, account_id, plan, max_assistants, max_call_time_seconds,
			current_assistants, used_call_time_seconds, last_deletion_at,
			deletion_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.AccountID,
		record.Plan,
		record.MaxAssistants,
		record.MaxCallTimeSeconds,
		record.CurrentAssistants,
		record.UsedCallTimeSeconds,
		record.LastDeletionAt,
		record.DeletionCount,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) AdjustAssistants(ctx context.Context, db *gorm.DB, accountID snowflake.ID, delta int) (int, error) {
	var newCount int
	// CASE clamps at zero portably across postgres and sqlite.
	err := db.WithContext(ctx).Raw(
		`UPDATE quota_records
		 SET current_assistants = CASE
		       WHEN current_assistants + ? < 0 THEN 0
		       ELSE current_assistants + ?
		     END,
		     updated_at = ?
		 WHERE account_id = ?
		 RETURNING current_assistants`,
		delta,
		delta,
		time.Now().UTC(),
		accountID,
	).Scan(&newCount).Error
	if err != nil {
		return 0, err
	}
	return newCount, nil
}

func (r *repo) AddCallTime(ctx context.Context, db *gorm.DB, accountID snowflake.ID, seconds int64) (int64, error) {
	var newTotal int64
	err := db.WithContext(ctx).Raw(
		`UPDATE quota_records
		 SET used_call_time_seconds = used_call_time_seconds + ?,
		     updated_at = ?
		 WHERE account_id = ?
		 RETURNING used_call_time_seconds`,
		seconds,
		time.Now().UTC(),
		accountID,
	).Scan(&newTotal).Error
	if err != nil {
		return 0, err
	}
	return newTotal, nil
}

func (r *repo) ResetCallTime(ctx context.Context, db *gorm.DB, accountID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quota_records
		 SET used_call_time_seconds = 0, updated_at = ?
		 WHERE account_id = ?`,
		time.Now().UTC(),
		accountID,
	).Error
}

func (r *repo) MarkDeletion(ctx context.Context, db *gorm.DB, accountID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE quota_records
		 SET last_deletion_at = ?, deletion_count = deletion_count + 1, updated_at = ?
		 WHERE account_id = ?`,
		at,
		at,
		accountID,
	).Error
}

func (r *repo) AppendEntry(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_ledger_entries (
			id, account_id, action, resource_id, assistant_delta,
			call_time_delta, reason, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.AccountID,
		entry.Action,
		entry.ResourceID,
		entry.AssistantDelta,
		entry.CallTimeDelta,
		entry.Reason,
		entry.Detail,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter domain.ListLedgerFilter) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	stmt := db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("account_id = ?", accountID)

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if reason := strings.TrimSpace(filter.Reason); reason != "" {
		stmt = stmt.Where("reason = ?", reason)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
