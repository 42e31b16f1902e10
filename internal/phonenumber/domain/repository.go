package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, number *PhoneNumber) error
	FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*PhoneNumber, error)
	ListByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]*PhoneNumber, error)
	ListByAssistant(ctx context.Context, db *gorm.DB, accountID, assistantID snowflake.ID) ([]*PhoneNumber, error)

	SetAssistant(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, assistantID *snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) error
}
