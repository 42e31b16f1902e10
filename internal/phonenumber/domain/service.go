package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	AccountID        snowflake.ID `json:"-"`
	Number           string       `json:"number" binding:"required"`
	TwilioAccountSID string       `json:"twilio_account_sid" binding:"required"`
	TwilioAuthToken  string       `json:"twilio_auth_token" binding:"required"`
	AssistantID      string       `json:"assistant_id"`
}

type Service interface {
	// Create registers the number with the voice provider then persists
	// the row, rolling back the provider record if the insert fails.
	Create(ctx context.Context, req CreateRequest) (*PhoneNumber, error)

	List(ctx context.Context, accountID snowflake.ID) ([]PhoneNumber, error)
	GetByID(ctx context.Context, accountID, id snowflake.ID) (*PhoneNumber, error)

	// Assign points the number at an assistant, provider first. A number
	// already assigned elsewhere is re-pointed.
	Assign(ctx context.Context, accountID, id, assistantID snowflake.ID) (*PhoneNumber, error)

	// Release detaches the number from its assistant without deleting it.
	Release(ctx context.Context, accountID, id snowflake.ID) (*PhoneNumber, error)

	// Delete removes the number at the provider then the row.
	Delete(ctx context.Context, accountID, id snowflake.ID) error
}

var (
	ErrNotFound          = errors.New("phone_number_not_found")
	ErrInvalidInput      = errors.New("invalid_phone_number_input")
	ErrAssistantNotFound = errors.New("assigned_assistant_not_found")
)
