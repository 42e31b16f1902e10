package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/phonenumber/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, number *domain.PhoneNumber) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO phone_numbers (
			id, account_id, assistant_id, provider_number_id, number,
			carrier, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		number.ID,
		number.AccountID,
		number.AssistantID,
		number.ProviderNumberID,
		number.Number,
		number.Carrier,
		number.CreatedAt,
		number.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.PhoneNumber, error) {
	var number domain.PhoneNumber
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM phone_numbers WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	).Scan(&number).Error
	if err != nil {
		return nil, err
	}
	if number.ID == 0 {
		return nil, nil
	}
	return &number, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]*domain.PhoneNumber, error) {
	var numbers []*domain.PhoneNumber
	err := db.WithContext(ctx).Model(&domain.PhoneNumber{}).
		Where("account_id = ?", accountID).
		Order("created_at desc, id desc").
		Find(&numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *repo) ListByAssistant(ctx context.Context, db *gorm.DB, accountID, assistantID snowflake.ID) ([]*domain.PhoneNumber, error) {
	var numbers []*domain.PhoneNumber
	err := db.WithContext(ctx).Model(&domain.PhoneNumber{}).
		Where("account_id = ? AND assistant_id = ?", accountID, assistantID).
		Order("created_at asc, id asc").
		Find(&numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *repo) SetAssistant(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, assistantID *snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE phone_numbers SET assistant_id = ?, updated_at = ?
		 WHERE account_id = ? AND id = ?`,
		assistantID,
		time.Now().UTC(),
		accountID,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM phone_numbers WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	).Error
}
