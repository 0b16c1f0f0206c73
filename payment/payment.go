// Package payment is the console's boundary to the payment provider's
// payment-intent API. A payment reference (the intent's client secret) is
// the only capability the console holds; it is never stored.
package payment

import "context"

// Payment-intent status strings as reported by the provider.
const (
	StatusSucceeded             = "succeeded"
	StatusCanceled              = "canceled"
	StatusProcessing            = "processing"
	StatusRequiresAction        = "requires_action"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresConfirmation  = "requires_confirmation"
	StatusRequiresCapture       = "requires_capture"
)

// Intent is the console's view of a payment intent: its status and whether
// a user-facing action (e.g. a 3-D-Secure challenge) is pending.
type Intent struct {
	ID             string
	Status         string
	RequiresAction bool
}

// ConfirmError is a structured confirmation failure. The provider may embed
// the payment intent observed at failure time; callers map its status to a
// user-facing message.
type ConfirmError struct {
	Message string
	Intent  *Intent
}

func (e *ConfirmError) Error() string { return e.Message }

// IntentClient exposes the payment-provider operations the checkout flow
// needs. Implementations must treat the payment reference as an opaque
// capability.
type IntentClient interface {
	// RetrieveIntent returns the intent identified by the payment reference.
	RetrieveIntent(ctx context.Context, paymentRef string) (*Intent, error)
	// HandleNextAction drives the intent's pending user-facing action and
	// returns the intent's state afterwards.
	HandleNextAction(ctx context.Context, paymentRef string) (*Intent, error)
	// Confirm attempts to confirm the payment with the payment method the
	// checkout form collected (empty when one is already attached). On
	// redirect-based payment methods the provider sends the user to
	// returnURL. Failures are reported as *ConfirmError when the provider
	// supplied structure.
	Confirm(ctx context.Context, paymentRef, paymentMethod, returnURL string) (*Intent, error)
}
