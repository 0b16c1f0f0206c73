package billing

import (
	"context"
	"errors"
)

// ErrSubscriptionGone is returned by Cancel when the provider no longer
// knows the subscription. Callers treat it as already-canceled and clear
// their own records.
var ErrSubscriptionGone = errors.New("billing: subscription no longer exists")

// ErrUnknownPlan is returned when a plan nickname is not in the catalog.
var ErrUnknownPlan = errors.New("billing: unknown plan")

// SubscriptionProvider abstracts the payment provider's customer and
// subscription management for the backend API.
type SubscriptionProvider interface {
	// CreateCustomer registers a billing customer and returns its id.
	CreateCustomer(ctx context.Context, name, email string) (customerID string, err error)
	// Subscribe puts the customer on the named plan. Any subscription in
	// currentSubID is canceled first; the new subscription is created
	// incomplete so the first payment is confirmed by the console's
	// checkout flow. Returns ErrUnknownPlan for nicknames outside the
	// catalog.
	Subscribe(ctx context.Context, customerID, currentSubID, planNickname string) (*SubscriptionHandle, error)
	// GetHandle returns the subscription's current status and, when the
	// latest invoice still awaits payment, its client secret.
	GetHandle(ctx context.Context, subscriptionID string) (*SubscriptionHandle, error)
	// Cancel cancels the subscription. Returns ErrSubscriptionGone when the
	// provider has no such subscription.
	Cancel(ctx context.Context, subscriptionID string) error
	// ListOfferings returns the purchasable catalog entries.
	ListOfferings(ctx context.Context) ([]Offering, error)
	// ParseWebhookEvent verifies the payload signature and classifies the
	// event into the store mutation it implies.
	ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}
