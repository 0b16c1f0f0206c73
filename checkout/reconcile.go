// Package checkout implements the payment-status reconciliation and
// confirmation flows behind the console's checkout page.
package checkout

import (
	"context"

	"github.com/orgbill/console/payment"
)

// Outcome classifies the result of checking a payment reference.
type Outcome int

const (
	// OutcomeNeedsPaymentMethod means the payment form must be shown so the
	// user can (re)confirm.
	OutcomeNeedsPaymentMethod Outcome = iota
	// OutcomeResolvedSuccess means the payment went through.
	OutcomeResolvedSuccess
	// OutcomeResolvedFailure means the payment can no longer complete.
	OutcomeResolvedFailure
	// OutcomeResolvedPending means the provider is still processing; the
	// user should check back later.
	OutcomeResolvedPending
)

// Terminal reports whether the outcome ends the checkout page's interest in
// the payment reference: the form is hidden and only the message remains.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeResolvedSuccess, OutcomeResolvedFailure, OutcomeResolvedPending:
		return true
	}
	return false
}

// Result pairs an outcome with its user-facing message.
type Result struct {
	Outcome Outcome
	Message string
}

// User-facing messages for classified payment statuses.
const (
	MsgSucceeded        = "Payment succeeded"
	MsgFailed           = "Payment Failed"
	MsgProcessing       = "Still processing payment, please check after a few minutes"
	MsgActionIncomplete = "Authentication did not complete, please try again"
)

// Classify maps a provider payment-intent status to a reconciliation
// result. It is the single classification point applied both to the
// initially retrieved status and to the status observed after a required
// user action.
func Classify(status string) Result {
	switch status {
	case payment.StatusSucceeded:
		return Result{Outcome: OutcomeResolvedSuccess, Message: MsgSucceeded}
	case payment.StatusCanceled:
		return Result{Outcome: OutcomeResolvedFailure, Message: MsgFailed}
	case payment.StatusProcessing:
		return Result{Outcome: OutcomeResolvedPending, Message: MsgProcessing}
	default:
		// requires_payment_method, requires_confirmation, requires_capture,
		// requires_action without a runnable action, and anything unknown:
		// the form stays available.
		return Result{Outcome: OutcomeNeedsPaymentMethod}
	}
}

// Reconciler checks a payment reference's current status once, driving the
// provider's required action when one is pending. No retry, no backoff: a
// failure to query is terminal for the page instance.
type Reconciler struct {
	intents payment.IntentClient
}

// NewReconciler creates a Reconciler over the given intent client.
func NewReconciler(intents payment.IntentClient) *Reconciler {
	return &Reconciler{intents: intents}
}

// Reconcile retrieves the payment intent and classifies it. When the intent
// requires a user-facing action, the action is executed once and the
// resulting status is classified with the same table. A post-action status
// that is still non-terminal resumes the payment form with an explicit
// message rather than leaving the user stranded.
func (r *Reconciler) Reconcile(ctx context.Context, paymentRef string) Result {
	intent, err := r.intents.RetrieveIntent(ctx, paymentRef)
	if err != nil {
		return Result{
			Outcome: OutcomeResolvedFailure,
			Message: "Failed to get payment : " + err.Error(),
		}
	}

	if intent.Status == payment.StatusRequiresAction && intent.RequiresAction {
		next, err := r.intents.HandleNextAction(ctx, paymentRef)
		if err != nil {
			return Result{
				Outcome: OutcomeResolvedFailure,
				Message: "Payment Failed : " + err.Error(),
			}
		}
		res := Classify(next.Status)
		if !res.Outcome.Terminal() {
			res.Message = MsgActionIncomplete
		}
		return res
	}

	return Classify(intent.Status)
}
