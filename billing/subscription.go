package billing

import "github.com/orgbill/console/store"

// SubscriptionStatus constants for well-known provider subscription states.
const (
	StatusIncomplete = "incomplete"
	StatusActive     = "active"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
)

// SubscriptionHandle is the provider-side view of a subscription returned to
// API callers: its id, current status, and the client secret of the payment
// intent that must be confirmed before the subscription activates. The client
// secret is empty once no further payment is required.
type SubscriptionHandle struct {
	ID           string
	Status       string
	ClientSecret string
	Plans        []store.PlanItem
}

// WebhookEventKind classifies provider webhook events into the store
// mutations they imply.
type WebhookEventKind int

const (
	// WebhookIgnored marks events that require no store mutation.
	WebhookIgnored WebhookEventKind = iota
	// WebhookSubscriptionUpserted carries a fresh subscription snapshot.
	WebhookSubscriptionUpserted
	// WebhookSubscriptionDeleted marks the subscription as gone.
	WebhookSubscriptionDeleted
)

// WebhookEvent is a parsed, signature-verified provider event.
type WebhookEvent struct {
	Kind           WebhookEventKind
	CustomerID     string
	SubscriptionID string
	Snapshot       store.SubscriptionSnapshot
}
