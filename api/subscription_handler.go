package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/store"
)

// SubscriptionHandler serves an organization's subscription lifecycle.
type SubscriptionHandler struct {
	orgs     store.OrganizationStore
	provider billing.SubscriptionProvider
	logger   *slog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(orgs store.OrganizationStore, provider billing.SubscriptionProvider, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{orgs: orgs, provider: provider, logger: logger}
}

type subscribeRequest struct {
	Plan string `json:"plan"`
}

// subResult is the wire form of a subscription handle.
type subResult struct {
	SubscriptionID     string `json:"subscriptionId"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	ClientSecret       string `json:"clientSecret"`
}

func handleResult(h *billing.SubscriptionHandle) subResult {
	return subResult{
		SubscriptionID:     h.ID,
		SubscriptionStatus: h.Status,
		ClientSecret:       h.ClientSecret,
	}
}

// Subscribe puts the organization on the requested plan. Any existing
// subscription is replaced, so POST (first subscription) and PUT (plan
// change) both land here.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	org := OrganizationFromContext(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.Plan = strings.TrimSpace(req.Plan)
	if req.Plan == "" {
		WriteError(w, http.StatusUnprocessableEntity, "plan is required")
		return
	}

	handle, err := h.provider.Subscribe(r.Context(), org.CustomerID, org.SubscriptionID, req.Plan)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownPlan) {
			WriteError(w, http.StatusUnprocessableEntity, "Invalid plan : "+req.Plan)
			return
		}
		h.logger.Error("subscribe", "org", org.ID, "plan", req.Plan, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to create subscription")
		return
	}

	snap := store.SubscriptionSnapshot{
		SubscriptionID: handle.ID,
		Status:         handle.Status,
		Plans:          handle.Plans,
	}
	if err := h.orgs.SetSubscription(r.Context(), org.ID, snap); err != nil {
		h.logger.Error("save subscription", "org", org.ID, "sub", handle.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to save subscription")
		return
	}
	WriteJSON(w, http.StatusOK, handleResult(handle))
}

// Get returns the subscription's current status and, when a payment is still
// outstanding, its client secret so the console can resume checkout.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	org := OrganizationFromContext(r.Context())
	if org.SubscriptionID == "" {
		WriteError(w, http.StatusNotFound, "organization has no subscription")
		return
	}

	handle, err := h.provider.GetHandle(r.Context(), org.SubscriptionID)
	if err != nil {
		if errors.Is(err, billing.ErrSubscriptionGone) {
			WriteError(w, http.StatusNotFound, "organization has no subscription")
			return
		}
		h.logger.Error("get subscription", "org", org.ID, "sub", org.SubscriptionID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to get subscription")
		return
	}
	WriteJSON(w, http.StatusOK, handleResult(handle))
}

// Cancel cancels the organization's subscription and clears its snapshot. A
// subscription the provider no longer knows counts as already canceled.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	org := OrganizationFromContext(r.Context())
	if org.SubscriptionID == "" {
		WriteJSON(w, http.StatusOK, "")
		return
	}

	if err := h.provider.Cancel(r.Context(), org.SubscriptionID); err != nil {
		if !errors.Is(err, billing.ErrSubscriptionGone) {
			h.logger.Error("cancel subscription", "org", org.ID, "sub", org.SubscriptionID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to cancel subscription")
			return
		}
		// Already gone provider-side; fall through and clear our record.
	}

	if err := h.orgs.ClearSubscriptionByOrg(r.Context(), org.ID); err != nil {
		h.logger.Error("clear subscription", "org", org.ID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Unsubscribed but failed to remove record")
		return
	}
	WriteJSON(w, http.StatusOK, "")
}
