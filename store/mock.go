package store

import (
	"context"
	"sync"
)

// MockStore is an in-memory OrganizationStore for tests. Error fields allow
// tests to inject failures per operation.
type MockStore struct {
	mu   sync.Mutex
	orgs map[int64]*Organization
	next int64

	CreateErr error
	GetErr    error
	ListErr   error
	UpdateErr error
}

// NewMockStore creates a MockStore ready for use.
func NewMockStore() *MockStore {
	return &MockStore{orgs: make(map[int64]*Organization)}
}

// Seed inserts an organization directly, bypassing duplicate checks.
func (m *MockStore) Seed(org *Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org.ID == 0 {
		m.next++
		org.ID = m.next
	} else if org.ID > m.next {
		m.next = org.ID
	}
	m.orgs[org.ID] = org
}

// Create inserts a new organization.
func (m *MockStore) Create(_ context.Context, org *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, o := range m.orgs {
		if o.Name == org.Name && o.Email == org.Email {
			return ErrDuplicate
		}
	}
	m.next++
	org.ID = m.next
	cp := *org
	m.orgs[org.ID] = &cp
	return nil
}

// Get returns the organization by id.
func (m *MockStore) Get(_ context.Context, id int64) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	org, ok := m.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

// Exists reports whether an organization with the name and email exists.
func (m *MockStore) Exists(_ context.Context, name, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return false, m.GetErr
	}
	for _, o := range m.orgs {
		if o.Name == name && o.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// GetByCustomer returns the organization owning the customer id.
func (m *MockStore) GetByCustomer(_ context.Context, customerID string) (*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, org := range m.orgs {
		if org.CustomerID == customerID {
			cp := *org
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// List returns all organizations ordered by id.
func (m *MockStore) List(_ context.Context) ([]*Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var orgs []*Organization
	for id := int64(1); id <= m.next; id++ {
		if org, ok := m.orgs[id]; ok {
			cp := *org
			orgs = append(orgs, &cp)
		}
	}
	return orgs, nil
}

// SetSubscription records the snapshot on the organization.
func (m *MockStore) SetSubscription(_ context.Context, orgID int64, snap SubscriptionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if org, ok := m.orgs[orgID]; ok {
		applySnapshot(org, snap)
	}
	return nil
}

// SetSubscriptionByCustomer records the snapshot keyed by customer id.
func (m *MockStore) SetSubscriptionByCustomer(_ context.Context, customerID string, snap SubscriptionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for _, org := range m.orgs {
		if org.CustomerID == customerID {
			applySnapshot(org, snap)
		}
	}
	return nil
}

// ClearSubscription removes the snapshot holding the subscription id.
func (m *MockStore) ClearSubscription(_ context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	for _, org := range m.orgs {
		if org.SubscriptionID == subscriptionID {
			clearSnapshot(org)
		}
	}
	return nil
}

// ClearSubscriptionByOrg removes the snapshot from the organization.
func (m *MockStore) ClearSubscriptionByOrg(_ context.Context, orgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	if org, ok := m.orgs[orgID]; ok {
		clearSnapshot(org)
	}
	return nil
}

func applySnapshot(org *Organization, snap SubscriptionSnapshot) {
	org.SubscriptionID = snap.SubscriptionID
	org.SubscriptionStatus = snap.Status
	org.Plans = snap.Plans
}

func clearSnapshot(org *Organization) {
	org.SubscriptionID = ""
	org.SubscriptionStatus = ""
	org.Plans = nil
}
