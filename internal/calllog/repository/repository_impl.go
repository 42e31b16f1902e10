package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/calllog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.CallLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO call_logs (
			id, account_id, assistant_id, provider_call_id,
			duration_seconds, status, started_at, ended_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.AccountID,
		log.AssistantID,
		log.ProviderCallID,
		log.DurationSeconds,
		log.Status,
		log.StartedAt,
		log.EndedAt,
		log.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter domain.ListFilter) ([]*domain.CallLog, error) {
	var logs []*domain.CallLog
	stmt := db.WithContext(ctx).Model(&domain.CallLog{}).
		Where("account_id = ?", accountID)

	if filter.AssistantID != 0 {
		stmt = stmt.Where("assistant_id = ?", filter.AssistantID)
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

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (domain.Totals, error) {
	var totals domain.Totals
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS calls,
		        COALESCE(SUM(duration_seconds), 0) AS total_duration_seconds
		 FROM call_logs WHERE account_id = ?`,
		accountID,
	).Scan(&totals).Error
	return totals, err
}

func (r *repo) AggregateByAssistant(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.AssistantAggregate, error) {
	var aggregates []domain.AssistantAggregate
	err := db.WithContext(ctx).Raw(
		`SELECT assistant_id,
		        COUNT(1) AS calls,
		        COALESCE(SUM(duration_seconds), 0) AS total_duration_seconds
		 FROM call_logs
		 WHERE account_id = ?
		 GROUP BY assistant_id
		 ORDER BY total_duration_seconds DESC`,
		accountID,
	).Scan(&aggregates).Error
	if err != nil {
		return nil, err
	}
	return aggregates, nil
}
