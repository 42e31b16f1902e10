package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, assistant *Assistant) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*Assistant, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]*Assistant, error)

	// FindOldestByAccount returns the account's oldest assistant by
	// created_at, breaking ties on id. Returns nil when the account has
	// no assistants.
	FindOldestByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*Assistant, error)

	Update(ctx context.Context, db *gorm.DB, assistant *Assistant) error
	Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) error
}
