package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/assistant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, assistant *domain.Assistant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO assistants (
			id, account_id, provider_assistant_id, name, model, voice,
			transcriber, prompt, max_duration_seconds, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assistant.ID,
		assistant.AccountID,
		assistant.ProviderAssistantID,
		assistant.Name,
		assistant.Model,
		assistant.Voice,
		assistant.Transcriber,
		assistant.Prompt,
		assistant.MaxDurationSeconds,
		assistant.CreatedAt,
		assistant.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.Assistant, error) {
	var assistant domain.Assistant
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM assistants WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	).Scan(&assistant).Error
	if err != nil {
		return nil, err
	}
	if assistant.ID == 0 {
		return nil, nil
	}
	return &assistant, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]*domain.Assistant, error) {
	var assistants []*domain.Assistant
	err := db.WithContext(ctx).Model(&domain.Assistant{}).
		Where("account_id = ?", accountID).
		Order("created_at desc, id desc").
		Find(&assistants).Error
	if err != nil {
		return nil, err
	}
	return assistants, nil
}

func (r *repo) FindOldestByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*domain.Assistant, error) {
	var assistant domain.Assistant
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM assistants
		 WHERE account_id = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1`,
		accountID,
	).Scan(&assistant).Error
	if err != nil {
		return nil, err
	}
	if assistant.ID == 0 {
		return nil, nil
	}
	return &assistant, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, assistant *domain.Assistant) error {
	return db.WithContext(ctx).Exec(
		`UPDATE assistants
		 SET name = ?, model = ?, voice = ?, transcriber = ?, prompt = ?,
		     max_duration_seconds = ?, updated_at = ?
		 WHERE account_id = ? AND id = ?`,
		assistant.Name,
		assistant.Model,
		assistant.Voice,
		assistant.Transcriber,
		assistant.Prompt,
		assistant.MaxDurationSeconds,
		time.Now().UTC(),
		assistant.AccountID,
		assistant.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM assistants WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	).Error
}
