package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// GetOrCreateByExternalID lazily provisions an account the first time
	// an identity-provider subject shows up. New accounts start on the
	// free plan as time-limited demos.
	GetOrCreateByExternalID(ctx context.Context, externalID, email string) (*Account, error)

	GetByID(ctx context.Context, id snowflake.ID) (*Account, error)

	// Delete permanently removes the account: provider-side phone numbers
	// first, then provider-side assistants, then all rows. Provider
	// failures are logged and skipped so the account can always be
	// removed.
	Delete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound          = errors.New("account_not_found")
	ErrInvalidExternalID = errors.New("invalid_external_id")
)
