package identity

import (
	"context"
	"errors"
)

// Identity is the resolved principal behind a bearer token.
type Identity struct {
	Subject string `json:"id"`
	Email   string `json:"email"`
}

// Resolver resolves a bearer token to an identity at the managed
// identity provider.
type Resolver interface {
	ResolveToken(ctx context.Context, token string) (*Identity, error)
}

var (
	ErrTokenInvalid = errors.New("token_invalid")
	ErrUnavailable  = errors.New("identity_unavailable")
)
