// Package domain contains the auto-deletion orchestrator contracts.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	quotadomain "github.com/voxlane/voxlane/internal/quota/domain"
)

// PhoneNumberResult records one phone number's fate during the cascade.
type PhoneNumberResult struct {
	PhoneNumberID    snowflake.ID `json:"phone_number_id"`
	ProviderNumberID string       `json:"provider_number_id"`
	Number           string       `json:"number"`
	Deleted          bool         `json:"deleted"`
	Error            string       `json:"error,omitempty"`
}

// Result is the structured outcome of one enforcement run.
// CallTimeReset is always false: a breach is terminal, usage is never
// handed back.
type Result struct {
	DeletedAssistantID         snowflake.ID        `json:"deleted_assistant_id"`
	DeletedProviderAssistantID string              `json:"deleted_provider_assistant_id"`
	DeletedAssistantName       string              `json:"deleted_assistant_name"`
	DeletedPhoneNumbers        []PhoneNumberResult `json:"deleted_phone_numbers"`
	CallTimeReset              bool                `json:"call_time_reset"`
	Skipped                    bool                `json:"skipped"`
}

// Outcome converts the run result into the quota-side view returned to
// the caller that recorded the breaching call.
func (r *Result) Outcome() *quotadomain.EnforcementOutcome {
	if r == nil {
		return nil
	}
	numbers := make([]quotadomain.EnforcedPhoneNumber, 0, len(r.DeletedPhoneNumbers))
	for _, nr := range r.DeletedPhoneNumbers {
		numbers = append(numbers, quotadomain.EnforcedPhoneNumber{
			PhoneNumberID: nr.PhoneNumberID,
			Number:        nr.Number,
			Deleted:       nr.Deleted,
			Error:         nr.Error,
		})
	}
	return &quotadomain.EnforcementOutcome{
		Skipped:              r.Skipped,
		DeletedAssistantID:   r.DeletedAssistantID,
		DeletedAssistantName: r.DeletedAssistantName,
		DeletedPhoneNumbers:  numbers,
		CallTimeReset:        r.CallTimeReset,
	}
}

// Service runs the auto-deletion state machine when a call-time breach
// is reported: lock, pick the oldest assistant, cascade its phone
// numbers, delete the assistant, update counters, log every step.
type Service interface {
	HandleBreach(ctx context.Context, report quotadomain.BreachReport) (*Result, error)
}

var (
	// ErrNoResourceToDelete means the breach is on the ledger but the
	// account has no assistant left to remove.
	ErrNoResourceToDelete = errors.New("no_resource_to_delete")

	// ErrAssistantDeleteFailed aborts the run: the victim could not be
	// removed at the provider, so counters stay untouched.
	ErrAssistantDeleteFailed = errors.New("assistant_delete_failed")
)
