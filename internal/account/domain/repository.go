package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Account, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Account, error)

	// DeleteCascade removes the account and every dependent row (call
	// logs, phone numbers, assistants, ledger entries, quota record) in
	// one transaction. Provider-side cleanup happens before this runs.
	DeleteCascade(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
