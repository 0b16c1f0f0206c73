package payment

import (
	"context"
	"sync"
)

// MockIntentClient is a scripted IntentClient for tests.
type MockIntentClient struct {
	mu sync.Mutex

	// RetrieveIntentResult / RetrieveErr script RetrieveIntent.
	RetrieveIntentResult *Intent
	RetrieveErr          error
	// NextActionResult / NextActionErr script HandleNextAction.
	NextActionResult *Intent
	NextActionErr    error
	// ConfirmResult / ConfirmErr script Confirm.
	ConfirmResult *Intent
	ConfirmErr    error

	// Call counters and captured arguments.
	RetrieveCalls     int
	NextActionCalls   int
	ConfirmCalls      int
	LastPaymentRef    string
	LastPaymentMethod string
	LastReturnURL     string
}

// RetrieveIntent returns the scripted intent.
func (m *MockIntentClient) RetrieveIntent(_ context.Context, paymentRef string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RetrieveCalls++
	m.LastPaymentRef = paymentRef
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}
	return m.RetrieveIntentResult, nil
}

// HandleNextAction returns the scripted post-action intent.
func (m *MockIntentClient) HandleNextAction(_ context.Context, paymentRef string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextActionCalls++
	m.LastPaymentRef = paymentRef
	if m.NextActionErr != nil {
		return nil, m.NextActionErr
	}
	return m.NextActionResult, nil
}

// Confirm returns the scripted confirmation result.
func (m *MockIntentClient) Confirm(_ context.Context, paymentRef, paymentMethod, returnURL string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConfirmCalls++
	m.LastPaymentRef = paymentRef
	m.LastPaymentMethod = paymentMethod
	m.LastReturnURL = returnURL
	if m.ConfirmErr != nil {
		return nil, m.ConfirmErr
	}
	return m.ConfirmResult, nil
}
