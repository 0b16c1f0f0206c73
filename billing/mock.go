package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/orgbill/console/store"
)

// MockSubscriptionProvider is a test double that records calls and returns
// configurable results.
type MockSubscriptionProvider struct {
	mu sync.Mutex

	// Customers maps customerID -> email.
	Customers map[string]string
	// Subscriptions maps subscriptionID -> plan nickname.
	Subscriptions map[string]string
	// Canceled collects subscription ids passed to Cancel.
	Canceled []string

	// Offerings is what ListOfferings returns.
	Offerings []Offering
	// ClientSecret is attached to handles returned by Subscribe/GetHandle.
	ClientSecret string
	// Status is the status returned on new handles. Defaults to incomplete.
	Status string
	// Event is what ParseWebhookEvent returns.
	Event *WebhookEvent

	// Error fields allow tests to inject failures.
	CreateCustomerErr error
	SubscribeErr      error
	GetHandleErr      error
	CancelErr         error
	ListOfferingsErr  error
	ParseWebhookErr   error

	nextCustomerSeq int
	nextSubSeq      int
}

// NewMockSubscriptionProvider creates a MockSubscriptionProvider ready for use.
func NewMockSubscriptionProvider() *MockSubscriptionProvider {
	return &MockSubscriptionProvider{
		Customers:     make(map[string]string),
		Subscriptions: make(map[string]string),
	}
}

// CreateCustomer creates a mock customer.
func (m *MockSubscriptionProvider) CreateCustomer(_ context.Context, _, email string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateCustomerErr != nil {
		return "", m.CreateCustomerErr
	}
	m.nextCustomerSeq++
	id := fmt.Sprintf("cus_mock_%d", m.nextCustomerSeq)
	m.Customers[id] = email
	return id, nil
}

// Subscribe creates a mock subscription, canceling any current one.
func (m *MockSubscriptionProvider) Subscribe(_ context.Context, customerID, currentSubID, planNickname string) (*SubscriptionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	if OfferingByNickname(m.Offerings, planNickname) == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownPlan, planNickname)
	}
	if currentSubID != "" {
		delete(m.Subscriptions, currentSubID)
		m.Canceled = append(m.Canceled, currentSubID)
	}
	m.nextSubSeq++
	id := fmt.Sprintf("sub_mock_%d", m.nextSubSeq)
	m.Subscriptions[id] = planNickname

	status := m.Status
	if status == "" {
		status = StatusIncomplete
	}
	handle := &SubscriptionHandle{
		ID:           id,
		Status:       status,
		ClientSecret: m.ClientSecret,
	}
	if o := OfferingByNickname(m.Offerings, planNickname); o != nil {
		handle.Plans = []store.PlanItem{{
			ID:             o.ID,
			ItemID:         fmt.Sprintf("si_mock_%d", m.nextSubSeq),
			SubscriptionID: id,
			Active:         true,
			Quantity:       1,
			Amount:         o.UnitAmount,
			Product:        o.Product,
		}}
	}
	return handle, nil
}

// GetHandle returns the mock subscription's handle.
func (m *MockSubscriptionProvider) GetHandle(_ context.Context, subscriptionID string) (*SubscriptionHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetHandleErr != nil {
		return nil, m.GetHandleErr
	}
	if _, ok := m.Subscriptions[subscriptionID]; !ok {
		return nil, ErrSubscriptionGone
	}
	status := m.Status
	if status == "" {
		status = StatusIncomplete
	}
	return &SubscriptionHandle{
		ID:           subscriptionID,
		Status:       status,
		ClientSecret: m.ClientSecret,
	}, nil
}

// Cancel cancels a mock subscription.
func (m *MockSubscriptionProvider) Cancel(_ context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CancelErr != nil {
		return m.CancelErr
	}
	if _, ok := m.Subscriptions[subscriptionID]; !ok {
		return ErrSubscriptionGone
	}
	delete(m.Subscriptions, subscriptionID)
	m.Canceled = append(m.Canceled, subscriptionID)
	return nil
}

// ListOfferings returns the configured offerings.
func (m *MockSubscriptionProvider) ListOfferings(_ context.Context) ([]Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListOfferingsErr != nil {
		return nil, m.ListOfferingsErr
	}
	out := make([]Offering, len(m.Offerings))
	copy(out, m.Offerings)
	return out, nil
}

// ParseWebhookEvent returns the configured event.
func (m *MockSubscriptionProvider) ParseWebhookEvent(_ []byte, _ string) (*WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ParseWebhookErr != nil {
		return nil, m.ParseWebhookErr
	}
	if m.Event != nil {
		return m.Event, nil
	}
	return &WebhookEvent{Kind: WebhookIgnored}, nil
}
