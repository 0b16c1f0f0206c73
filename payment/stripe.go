package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// StripeIntentClient implements IntentClient against the Stripe
// payment-intent API. Confirmation is a server-side call, so the key must
// be a secret (or restricted) key, not the publishable key.
type StripeIntentClient struct{}

// NewStripeIntentClient creates a StripeIntentClient with the given secret
// API key.
func NewStripeIntentClient(apiKey string) *StripeIntentClient {
	if apiKey != "" {
		stripe.Key = apiKey
	}
	return &StripeIntentClient{}
}

// RetrieveIntent fetches the payment intent referenced by the client secret.
// The secret is sent along with the retrieve call; Stripe requires it when
// the request is authorized with anything less than a full secret key.
func (c *StripeIntentClient) RetrieveIntent(_ context.Context, paymentRef string) (*Intent, error) {
	id, err := intentIDFromSecret(paymentRef)
	if err != nil {
		return nil, err
	}
	params := &stripe.PaymentIntentParams{
		ClientSecret: stripe.String(paymentRef),
	}
	pi, err := paymentintent.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("payment: retrieve intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

// HandleNextAction re-reads the intent after its pending action. The action
// itself (3-D-Secure and friends) runs in the provider's hosted surface; by
// the time the console is asked to continue, only the resulting status is
// relevant.
func (c *StripeIntentClient) HandleNextAction(ctx context.Context, paymentRef string) (*Intent, error) {
	return c.RetrieveIntent(ctx, paymentRef)
}

// Confirm confirms the payment intent, attaching the payment method the
// checkout form collected, with a return URL for redirect-based payment
// methods. paymentMethod may be empty when a method is already attached to
// the intent (a resumed confirmation).
func (c *StripeIntentClient) Confirm(_ context.Context, paymentRef, paymentMethod, returnURL string) (*Intent, error) {
	id, err := intentIDFromSecret(paymentRef)
	if err != nil {
		return nil, err
	}
	params := &stripe.PaymentIntentConfirmParams{
		ReturnURL: stripe.String(returnURL),
	}
	if paymentMethod != "" {
		params.PaymentMethod = stripe.String(paymentMethod)
	}
	pi, err := paymentintent.Confirm(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			ce := &ConfirmError{Message: stripeErr.Msg}
			if stripeErr.PaymentIntent != nil {
				ce.Intent = intentFromStripe(stripeErr.PaymentIntent)
			}
			return nil, ce
		}
		return nil, fmt.Errorf("payment: confirm intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:             pi.ID,
		Status:         string(pi.Status),
		RequiresAction: pi.NextAction != nil,
	}
}

// intentIDFromSecret extracts the intent id from a client secret of the
// form pi_xxx_secret_yyy.
func intentIDFromSecret(paymentRef string) (string, error) {
	id, _, found := strings.Cut(paymentRef, "_secret")
	if !found || id == "" {
		return "", fmt.Errorf("payment: malformed payment reference")
	}
	return id, nil
}
