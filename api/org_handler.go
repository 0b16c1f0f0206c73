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

// OrgHandler serves organization CRUD.
type OrgHandler struct {
	orgs     store.OrganizationStore
	provider billing.SubscriptionProvider
	logger   *slog.Logger
}

// NewOrgHandler creates a new OrgHandler.
func NewOrgHandler(orgs store.OrganizationStore, provider billing.SubscriptionProvider, logger *slog.Logger) *OrgHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrgHandler{orgs: orgs, provider: provider, logger: logger}
}

type createOrgRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Create registers a new organization. A billing customer is created for it
// up front so every stored organization carries a customer id.
func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" {
		WriteError(w, http.StatusUnprocessableEntity, "name and email are required")
		return
	}

	exists, err := h.orgs.Exists(r.Context(), req.Name, req.Email)
	if err != nil {
		h.logger.Error("check organization", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to create organization")
		return
	}
	if exists {
		WriteError(w, http.StatusForbidden, "Organization already exists")
		return
	}

	customerID, err := h.provider.CreateCustomer(r.Context(), req.Name, req.Email)
	if err != nil {
		h.logger.Error("create billing customer", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to create customer")
		return
	}

	org := &store.Organization{Name: req.Name, Email: req.Email, CustomerID: customerID}
	if err := h.orgs.Create(r.Context(), org); err != nil {
		// A concurrent create can still slip past the Exists check.
		if errors.Is(err, store.ErrDuplicate) {
			WriteError(w, http.StatusForbidden, "Organization already exists")
			return
		}
		h.logger.Error("create organization", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to create organization")
		return
	}
	WriteJSON(w, http.StatusOK, org)
}

// List returns all organizations.
func (h *OrgHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		h.logger.Error("list organizations", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to list organizations")
		return
	}
	if orgs == nil {
		orgs = []*store.Organization{}
	}
	WriteJSON(w, http.StatusOK, orgs)
}

// Get returns the organization loaded by WithOrganization.
func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, OrganizationFromContext(r.Context()))
}
