package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	AccountID          snowflake.ID `json:"-"`
	Plan               string       `json:"-"`
	Name               string       `json:"name" binding:"required"`
	Model              string       `json:"model" binding:"required"`
	Voice              string       `json:"voice"`
	Transcriber        string       `json:"transcriber"`
	Prompt             string       `json:"prompt"`
	MaxDurationSeconds int          `json:"max_duration_seconds"`
}

type UpdateRequest struct {
	AccountID          snowflake.ID `json:"-"`
	ID                 snowflake.ID `json:"-"`
	Name               *string      `json:"name"`
	Model              *string      `json:"model"`
	Voice              *string      `json:"voice"`
	Transcriber        *string      `json:"transcriber"`
	Prompt             *string      `json:"prompt"`
	MaxDurationSeconds *int         `json:"max_duration_seconds"`
}

type Service interface {
	// Create gates on the account's assistant limit, creates the
	// provider-side assistant, persists the row, and increments the
	// quota counter. The provider record is rolled back if the row
	// insert fails.
	Create(ctx context.Context, req CreateRequest) (*Assistant, error)

	List(ctx context.Context, accountID snowflake.ID) ([]Assistant, error)
	GetByID(ctx context.Context, accountID, id snowflake.ID) (*Assistant, error)
	Update(ctx context.Context, req UpdateRequest) (*Assistant, error)

	// Delete releases any phone numbers still pointing at the assistant,
	// deletes the provider-side record, removes the row, and decrements
	// the quota counter.
	Delete(ctx context.Context, accountID, id snowflake.ID) error
}

var (
	ErrNotFound     = errors.New("assistant_not_found")
	ErrInvalidInput = errors.New("invalid_assistant_input")

	// ErrLimitReached means the account is at its plan's assistant cap.
	// The HTTP layer deliberately masks this as an empty success.
	ErrLimitReached = errors.New("assistant_limit_reached")
)
