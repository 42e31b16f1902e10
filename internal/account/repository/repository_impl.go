package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/voxlane/voxlane/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (
			id, external_id, email, plan, is_demo, demo_expires_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.ExternalID,
		account.Email,
		account.Plan,
		account.IsDemo,
		account.DemoExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM accounts WHERE external_id = ?`,
		externalID,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM accounts WHERE id = ?`,
		id,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) DeleteCascade(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		statements := []string{
			`DELETE FROM call_logs WHERE account_id = ?`,
			`DELETE FROM phone_numbers WHERE account_id = ?`,
			`DELETE FROM assistants WHERE account_id = ?`,
			`DELETE FROM usage_ledger_entries WHERE account_id = ?`,
			`DELETE FROM quota_records WHERE account_id = ?`,
			`DELETE FROM accounts WHERE id = ?`,
		}
		for _, stmt := range statements {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
