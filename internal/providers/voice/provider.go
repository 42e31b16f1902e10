package voice

import (
	"context"
	"errors"
	"fmt"
)

// AssistantParams describes an assistant record at the voice provider.
type AssistantParams struct {
	Name               string `json:"name"`
	Model              string `json:"model"`
	Voice              string `json:"voice"`
	Transcriber        string `json:"transcriber"`
	Prompt             string `json:"prompt"`
	MaxDurationSeconds int    `json:"maxDurationSeconds"`
}

// Assistant is the provider-side assistant record.
type Assistant struct {
	ID string `json:"id"`
}

// PhoneNumberParams describes a phone number record at the voice provider.
type PhoneNumberParams struct {
	Number           string `json:"number"`
	TwilioAccountSID string `json:"twilioAccountSid,omitempty"`
	TwilioAuthToken  string `json:"twilioAuthToken,omitempty"`
	AssistantID      string `json:"assistantId,omitempty"`
}

// PhoneNumber is the provider-side phone number record.
type PhoneNumber struct {
	ID string `json:"id"`
}

// Client is the surface of the third-party voice-assistant provider the
// application depends on. All operations are treated as idempotent on
// retry; creates carry an idempotency key so a timed-out request can be
// safely reissued.
type Client interface {
	CreateAssistant(ctx context.Context, params AssistantParams) (*Assistant, error)
	UpdateAssistant(ctx context.Context, providerID string, params AssistantParams) error
	DeleteAssistant(ctx context.Context, providerID string) error
	CreatePhoneNumber(ctx context.Context, params PhoneNumberParams) (*PhoneNumber, error)
	UpdatePhoneNumber(ctx context.Context, providerID string, assistantID string) error
	DeletePhoneNumber(ctx context.Context, providerID string) error
}

var ErrNotConfigured = errors.New("voice provider not configured")

// ProviderError carries the provider's HTTP status and message after
// retries are exhausted (5xx) or immediately (4xx).
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("voice provider error (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the failure class is worth retrying:
// only server-side errors are; auth and validation errors are not.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode >= 500
}
