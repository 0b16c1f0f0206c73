package api

import (
	"log/slog"
	"net/http"

	"github.com/orgbill/console/billing"
)

// PlansHandler serves the purchasable plan catalog and the provider's
// publishable configuration.
type PlansHandler struct {
	provider       billing.SubscriptionProvider
	publishableKey string
	logger         *slog.Logger
}

// NewPlansHandler creates a new PlansHandler.
func NewPlansHandler(provider billing.SubscriptionProvider, publishableKey string, logger *slog.Logger) *PlansHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlansHandler{provider: provider, publishableKey: publishableKey, logger: logger}
}

// List returns the plan catalog.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	offerings, err := h.provider.ListOfferings(r.Context())
	if err != nil {
		h.logger.Error("list offerings", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to get plan")
		return
	}
	if offerings == nil {
		offerings = []billing.Offering{}
	}
	WriteJSON(w, http.StatusOK, offerings)
}

type providerConfig struct {
	PublishableKey string `json:"publishableKey"`
}

// Config returns the publishable key the console's payment form needs.
func (h *PlansHandler) Config(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, providerConfig{PublishableKey: h.publishableKey})
}
