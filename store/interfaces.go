package store

import "context"

// OrganizationStore persists organizations and their subscription snapshots.
// The backend is the sole writer; subscription state only changes through
// SetSubscription/ClearSubscription as provider events arrive.
type OrganizationStore interface {
	// Create inserts a new organization. Returns ErrDuplicate when an
	// organization with the same name and email already exists. The
	// organization's ID is populated on success.
	Create(ctx context.Context, org *Organization) error
	// Get returns the organization by id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*Organization, error)
	// Exists reports whether an organization with the name and email is
	// already registered. Used to reject duplicates before a billing
	// customer is created for them.
	Exists(ctx context.Context, name, email string) (bool, error)
	// GetByCustomer returns the organization owning the given billing
	// customer id, or ErrNotFound.
	GetByCustomer(ctx context.Context, customerID string) (*Organization, error)
	// List returns all organizations ordered by id.
	List(ctx context.Context) ([]*Organization, error)

	// SetSubscription records the subscription snapshot on the organization.
	SetSubscription(ctx context.Context, orgID int64, snap SubscriptionSnapshot) error
	// SetSubscriptionByCustomer records the snapshot on whichever
	// organization owns the customer id. Used by webhook processing, where
	// only the provider's customer reference is known.
	SetSubscriptionByCustomer(ctx context.Context, customerID string, snap SubscriptionSnapshot) error
	// ClearSubscription removes the snapshot from the organization holding
	// the given subscription id.
	ClearSubscription(ctx context.Context, subscriptionID string) error
	// ClearSubscriptionByOrg removes the snapshot from the organization.
	ClearSubscriptionByOrg(ctx context.Context, orgID int64) error
}
