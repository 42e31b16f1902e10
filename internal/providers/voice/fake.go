package voice

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Client used in tests and when the provider is not
// configured. It is selected explicitly at construction time.
type Fake struct {
	mu         sync.Mutex
	seq        int
	assistants map[string]AssistantParams
	numbers    map[string]PhoneNumberParams

	// Optional failure hooks keyed by provider ID.
	DeleteAssistantErr   map[string]error
	DeletePhoneNumberErr map[string]error
}

func NewFake() *Fake {
	return &Fake{
		assistants: map[string]AssistantParams{},
		numbers:    map[string]PhoneNumberParams{},
	}
}

func (f *Fake) CreateAssistant(ctx context.Context, params AssistantParams) (*Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("va_%d", f.seq)
	f.assistants[id] = params
	return &Assistant{ID: id}, nil
}

func (f *Fake) UpdateAssistant(ctx context.Context, providerID string, params AssistantParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assistants[providerID]; !ok {
		return &ProviderError{StatusCode: 404, Message: "assistant not found"}
	}
	f.assistants[providerID] = params
	return nil
}

func (f *Fake) DeleteAssistant(ctx context.Context, providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DeleteAssistantErr[providerID]; err != nil {
		return err
	}
	delete(f.assistants, providerID)
	return nil
}

func (f *Fake) CreatePhoneNumber(ctx context.Context, params PhoneNumberParams) (*PhoneNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("vp_%d", f.seq)
	f.numbers[id] = params
	return &PhoneNumber{ID: id}, nil
}

func (f *Fake) UpdatePhoneNumber(ctx context.Context, providerID string, assistantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	params, ok := f.numbers[providerID]
	if !ok {
		return &ProviderError{StatusCode: 404, Message: "phone number not found"}
	}
	params.AssistantID = assistantID
	f.numbers[providerID] = params
	return nil
}

func (f *Fake) DeletePhoneNumber(ctx context.Context, providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.DeletePhoneNumberErr[providerID]; err != nil {
		return err
	}
	delete(f.numbers, providerID)
	return nil
}

// HasAssistant reports whether the provider-side assistant still exists.
func (f *Fake) HasAssistant(providerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.assistants[providerID]
	return ok
}

// HasPhoneNumber reports whether the provider-side number still exists.
func (f *Fake) HasPhoneNumber(providerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.numbers[providerID]
	return ok
}
