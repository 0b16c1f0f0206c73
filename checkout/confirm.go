package checkout

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/orgbill/console/payment"
)

// ErrConfirmInFlight is returned when a confirmation is already running on
// this flow instance. Each checkout form gets one flow, so this enforces
// single-flight per form.
var ErrConfirmInFlight = errors.New("checkout: confirmation already in flight")

// ConfirmFlow submits a payment confirmation and maps provider failures to
// user-facing messages.
type ConfirmFlow struct {
	intents  payment.IntentClient
	origin   string // console origin for redirect return URLs
	inFlight atomic.Bool
}

// NewConfirmFlow creates a ConfirmFlow. origin is the console's base URL,
// without a trailing slash.
func NewConfirmFlow(intents payment.IntentClient, origin string) *ConfirmFlow {
	return &ConfirmFlow{intents: intents, origin: origin}
}

// ReturnURL is where redirect-based payment methods send the user back:
// the organization's detail page, or the console root when no organization
// id is known.
func (f *ConfirmFlow) ReturnURL(orgID string) string {
	if orgID == "" {
		return f.origin + "/"
	}
	return f.origin + "/organization/" + orgID
}

// Confirm confirms the payment once, attaching the payment method the form
// collected. The returned message is empty on success; on provider failure
// it is the user-facing text to display. A concurrent call on the same flow
// returns ErrConfirmInFlight.
func (f *ConfirmFlow) Confirm(ctx context.Context, paymentRef, paymentMethod, orgID string) (string, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return "", ErrConfirmInFlight
	}
	defer f.inFlight.Store(false)

	_, err := f.intents.Confirm(ctx, paymentRef, paymentMethod, f.ReturnURL(orgID))
	if err != nil {
		return confirmFailureMessage(err), nil
	}
	return "", nil
}

// confirmFailureMessage maps a confirmation failure to its display text.
// When the provider embedded the payment intent it observed, the intent's
// status refines the message; a succeeded status means the earlier submit
// already went through.
func confirmFailureMessage(err error) string {
	var ce *payment.ConfirmError
	if !errors.As(err, &ce) {
		return err.Error()
	}
	if ce.Intent == nil || ce.Intent.Status == "" {
		return ce.Message
	}
	switch ce.Intent.Status {
	case payment.StatusSucceeded:
		return "Paid already"
	case payment.StatusCanceled:
		return "Payment Indent Canceled"
	default:
		return ce.Message + "\n\npayment indent status : " + ce.Intent.Status
	}
}
