package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/store"
)

// Webhook payloads are small; cap reads well below any realistic event size.
const maxWebhookBody = 64 << 10

// WebhookHandler applies provider subscription events to the store, keeping
// the persisted snapshots in sync with the provider's state.
type WebhookHandler struct {
	orgs     store.OrganizationStore
	provider billing.SubscriptionProvider
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(orgs store.OrganizationStore, provider billing.SubscriptionProvider, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{orgs: orgs, provider: provider, logger: logger}
}

// Handle verifies and applies one provider event. A non-200 response makes
// the provider redeliver, so store failures return 500 and only signature or
// payload problems return 400.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	event, err := h.provider.ParseWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("reject webhook", "error", err)
		WriteError(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	switch event.Kind {
	case billing.WebhookSubscriptionUpserted:
		err = h.orgs.SetSubscriptionByCustomer(r.Context(), event.CustomerID, event.Snapshot)
	case billing.WebhookSubscriptionDeleted:
		err = h.orgs.ClearSubscription(r.Context(), event.SubscriptionID)
	case billing.WebhookIgnored:
		// Nothing to apply.
	}
	if err != nil {
		h.logger.Error("apply webhook", "customer", event.CustomerID, "sub", event.SubscriptionID, "error", err)
		WriteError(w, http.StatusInternalServerError, "failed to apply event")
		return
	}
	w.WriteHeader(http.StatusOK)
}
