package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/orgbill/console/store"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/product"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeSubscriptionProvider implements SubscriptionProvider using the
// Stripe API.
type StripeSubscriptionProvider struct {
	apiKey        string
	webhookSecret string
	catalog       Catalog
}

// NewStripeSubscriptionProvider creates a StripeSubscriptionProvider with
// the given API key, webhook secret, and plan catalog.
func NewStripeSubscriptionProvider(apiKey, webhookSecret string, catalog Catalog) *StripeSubscriptionProvider {
	stripe.Key = apiKey
	return &StripeSubscriptionProvider{
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		catalog:       catalog,
	}
}

// CreateCustomer creates a new Stripe customer.
func (p *StripeSubscriptionProvider) CreateCustomer(_ context.Context, name, email string) (string, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	params.SetIdempotencyKey(uuid.NewString())
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create stripe customer: %w", err)
	}
	return c.ID, nil
}

// Subscribe puts the customer on the named plan. The previous subscription,
// if any, is canceled first; the replacement is created incomplete so the
// first invoice's payment intent is confirmed by the checkout flow.
func (p *StripeSubscriptionProvider) Subscribe(_ context.Context, customerID, currentSubID, planNickname string) (*SubscriptionHandle, error) {
	priceID, ok := p.catalog.PriceID(planNickname)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPlan, planNickname)
	}

	if currentSubID != "" {
		if _, err := subscription.Cancel(currentSubID, nil); err != nil && !isResourceMissing(err) {
			return nil, fmt.Errorf("billing: cancel current subscription: %w", err)
		}
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		// Save the payment method on the subscription once the first
		// payment succeeds, so renewals do not re-prompt.
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.AddExpand("latest_invoice.confirmation_secret")
	params.SetIdempotencyKey(uuid.NewString())

	s, err := subscription.New(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create stripe subscription: %w", err)
	}
	return p.handleFromSubscription(s), nil
}

// GetHandle returns the subscription's status and outstanding client secret.
func (p *StripeSubscriptionProvider) GetHandle(_ context.Context, subscriptionID string) (*SubscriptionHandle, error) {
	params := &stripe.SubscriptionParams{}
	params.AddExpand("latest_invoice.confirmation_secret")
	s, err := subscription.Get(subscriptionID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrSubscriptionGone
		}
		return nil, fmt.Errorf("billing: get stripe subscription: %w", err)
	}
	return p.handleFromSubscription(s), nil
}

// Cancel cancels the Stripe subscription immediately.
func (p *StripeSubscriptionProvider) Cancel(_ context.Context, subscriptionID string) error {
	if _, err := subscription.Cancel(subscriptionID, nil); err != nil {
		if isResourceMissing(err) {
			return ErrSubscriptionGone
		}
		return fmt.Errorf("billing: cancel stripe subscription: %w", err)
	}
	return nil
}

// ListOfferings fetches each catalog price from Stripe and hydrates it with
// its product. The nickname served to the console is the catalog key, not
// whatever nickname the dashboard price carries.
func (p *StripeSubscriptionProvider) ListOfferings(_ context.Context) ([]Offering, error) {
	var offerings []Offering
	for _, nickname := range p.catalog.Nicknames() {
		priceID := p.catalog[nickname]
		pr, err := price.Get(priceID, nil)
		if err != nil {
			return nil, fmt.Errorf("billing: get price %s: %w", priceID, err)
		}
		o := Offering{
			ID:         pr.ID,
			Nickname:   nickname,
			UnitAmount: pr.UnitAmount,
			Currency:   string(pr.Currency),
			Metadata:   pr.Metadata,
		}
		if pr.Recurring != nil {
			o.Recurring.Interval = string(pr.Recurring.Interval)
		}
		if pr.Product != nil {
			prod, err := product.Get(pr.Product.ID, nil)
			if err != nil {
				return nil, fmt.Errorf("billing: get product %s: %w", pr.Product.ID, err)
			}
			o.Product = store.Product{
				ID:          prod.ID,
				Active:      prod.Active,
				Name:        prod.Name,
				Description: prod.Description,
			}
		}
		offerings = append(offerings, o)
	}
	return offerings, nil
}

// ParseWebhookEvent verifies the Stripe signature and classifies
// subscription lifecycle events.
func (p *StripeSubscriptionProvider) ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("billing: webhook signature verification failed: %w", err)
	}

	switch event.Type {
	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.paused",
		"customer.subscription.resumed",
		"customer.subscription.pending_update_applied",
		"customer.subscription.pending_update_expired",
		"customer.subscription.trial_will_end":
		sub, err := parseEventSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return &WebhookEvent{
			Kind:           WebhookSubscriptionUpserted,
			CustomerID:     customerIDOf(sub),
			SubscriptionID: sub.ID,
			Snapshot: store.SubscriptionSnapshot{
				SubscriptionID: sub.ID,
				Status:         string(sub.Status),
				Plans:          planItemsFromSubscription(sub),
			},
		}, nil
	case "customer.subscription.deleted":
		sub, err := parseEventSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return &WebhookEvent{
			Kind:           WebhookSubscriptionDeleted,
			CustomerID:     customerIDOf(sub),
			SubscriptionID: sub.ID,
		}, nil
	}
	return &WebhookEvent{Kind: WebhookIgnored}, nil
}

func (p *StripeSubscriptionProvider) handleFromSubscription(s *stripe.Subscription) *SubscriptionHandle {
	handle := &SubscriptionHandle{
		ID:     s.ID,
		Status: string(s.Status),
		Plans:  planItemsFromSubscription(s),
	}
	if s.LatestInvoice != nil && s.LatestInvoice.ConfirmationSecret != nil {
		handle.ClientSecret = s.LatestInvoice.ConfirmationSecret.ClientSecret
	}
	return handle
}

func parseEventSubscription(raw json.RawMessage) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("billing: parse subscription event: %w", err)
	}
	return &sub, nil
}

func customerIDOf(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

// planItemsFromSubscription snapshots the subscription's items. Product
// details are hydrated best-effort; a failed product fetch leaves only the
// product id on the item.
func planItemsFromSubscription(s *stripe.Subscription) []store.PlanItem {
	if s.Items == nil {
		return nil
	}
	var items []store.PlanItem
	for _, item := range s.Items.Data {
		if item.Price == nil {
			continue
		}
		pi := store.PlanItem{
			ID:             item.Price.ID,
			ItemID:         item.ID,
			SubscriptionID: s.ID,
			Active:         item.Price.Active,
			Quantity:       item.Quantity,
			Amount:         item.Price.UnitAmount,
		}
		if item.Price.Product != nil {
			pi.Product.ID = item.Price.Product.ID
			if prod, err := product.Get(item.Price.Product.ID, nil); err == nil {
				pi.Product.Active = prod.Active
				pi.Product.Name = prod.Name
				pi.Product.Description = prod.Description
			}
		}
		items = append(items, pi)
	}
	return items
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}
