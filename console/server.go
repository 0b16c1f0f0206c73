// Package console is the server-rendered organization console: organization
// CRUD screens, plan selection, and the checkout page that confirms
// outstanding payments.
package console

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/checkout"
	"github.com/orgbill/console/client"
	"github.com/orgbill/console/payment"
	"github.com/orgbill/console/store"
)

// Server renders the console pages over the backend API client and the
// payment provider's intent client.
type Server struct {
	api        *client.Client
	reconciler *checkout.Reconciler
	plans      *PlanFlow
	intents    payment.IntentClient
	origin     string
	logger     *slog.Logger

	mu       sync.Mutex
	confirms map[string]*checkout.ConfirmFlow
}

// NewServer creates a console Server. origin is the console's externally
// visible base URL, used for payment return URLs.
func NewServer(api *client.Client, intents payment.IntentClient, origin string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		api:        api,
		reconciler: checkout.NewReconciler(intents),
		plans:      NewPlanFlow(api),
		intents:    intents,
		origin:     origin,
		logger:     logger,
		confirms:   make(map[string]*checkout.ConfirmFlow),
	}
}

// confirmFlow returns the one ConfirmFlow for a payment reference, so
// repeated submits of the same checkout form share the single-flight guard.
func (s *Server) confirmFlow(paymentRef string) *checkout.ConfirmFlow {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.confirms[paymentRef]
	if !ok {
		f = checkout.NewConfirmFlow(s.intents, s.origin)
		s.confirms[paymentRef] = f
	}
	return f
}

// dropConfirmFlow evicts a payment reference's ConfirmFlow once its payment
// has resolved, so finished checkouts do not accumulate.
func (s *Server) dropConfirmFlow(paymentRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.confirms, paymentRef)
}

// Handler returns the console's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/organization", http.StatusFound)
	})
	mux.HandleFunc("GET /organization", s.listOrganizations)
	mux.HandleFunc("GET /organization/create", s.createForm)
	mux.HandleFunc("POST /organization/create", s.create)
	mux.HandleFunc("GET /organization/{id}", s.showOrganization)
	mux.HandleFunc("POST /organization/{id}/cancel", s.cancelSubscription)
	mux.HandleFunc("POST /organization/{id}/payment", s.completePayment)
	mux.HandleFunc("GET /plans", s.showPlans)
	mux.HandleFunc("POST /plans", s.submitPlan)
	mux.HandleFunc("GET /checkout", s.showCheckout)
	mux.HandleFunc("POST /checkout", s.confirmCheckout)
	return mux
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render template", "template", name, "error", err)
	}
}

type orgsPage struct {
	Organizations []*store.Organization
	Message       string
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	page := orgsPage{Message: r.URL.Query().Get("msg")}
	orgs, err := s.api.ListOrganizations(r.Context())
	if err != nil {
		page.Message = err.Error()
	}
	page.Organizations = orgs
	s.render(w, "orgs", page)
}

type createPage struct {
	Name    string
	Email   string
	Message string
}

func (s *Server) createForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "create", createPage{})
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	email := r.FormValue("email")
	if err := s.api.CreateOrganization(r.Context(), name, email); err != nil {
		// The backend's plain-text body is the display message.
		s.render(w, "create", createPage{Name: name, Email: email, Message: err.Error()})
		return
	}
	http.Redirect(w, r, "/organization", http.StatusSeeOther)
}

type orgPage struct {
	Organization *store.Organization
	Message      string
}

// loadOrganization fetches the {id} organization, writing the error page on
// failure. Returns nil when the response has been written.
func (s *Server) loadOrganization(w http.ResponseWriter, r *http.Request) *store.Organization {
	org, err := s.api.GetOrganization(r.Context(), r.PathValue("id"))
	if err != nil {
		s.render(w, "orgs", orgsPage{Message: err.Error()})
		return nil
	}
	if org == nil {
		http.NotFound(w, r)
		return nil
	}
	return org
}

func (s *Server) showOrganization(w http.ResponseWriter, r *http.Request) {
	org := s.loadOrganization(w, r)
	if org == nil {
		return
	}
	s.render(w, "org", orgPage{Organization: org, Message: r.URL.Query().Get("msg")})
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	org := s.loadOrganization(w, r)
	if org == nil {
		return
	}
	if err := s.api.CancelSubscription(r.Context(), formatID(org.ID)); err != nil {
		s.render(w, "org", orgPage{Organization: org, Message: err.Error()})
		return
	}
	http.Redirect(w, r, "/organization/"+formatID(org.ID), http.StatusSeeOther)
}

// completePayment resumes checkout for a subscription whose first payment
// never went through: when the backend still reports an outstanding client
// secret the user is sent to the checkout page, otherwise back to the
// detail page.
func (s *Server) completePayment(w http.ResponseWriter, r *http.Request) {
	org := s.loadOrganization(w, r)
	if org == nil {
		return
	}
	res, err := s.api.GetSubscription(r.Context(), formatID(org.ID))
	if err != nil {
		s.render(w, "org", orgPage{Organization: org, Message: err.Error()})
		return
	}
	if res.ClientSecret == "" {
		http.Redirect(w, r, "/organization/"+formatID(org.ID), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/checkout?payment="+res.ClientSecret+"&id="+formatID(org.ID), http.StatusSeeOther)
}

type planRow struct {
	Offering billing.Offering
	Current  bool
}

type plansPage struct {
	OrgID     string
	Offerings []planRow
	Message   string
}

// loadPlansPage fetches the organization and the catalog, sorted ascending
// by unit amount, marking the plans the organization currently holds.
func (s *Server) loadPlansPage(r *http.Request, orgID string) (*store.Organization, plansPage, error) {
	org, err := s.api.GetOrganization(r.Context(), orgID)
	if err != nil {
		return nil, plansPage{}, err
	}
	if org == nil {
		return nil, plansPage{}, errors.New("organization not found")
	}
	offerings, err := s.api.ListPlans(r.Context())
	if err != nil {
		return nil, plansPage{}, err
	}
	billing.SortOfferings(offerings)

	page := plansPage{OrgID: orgID}
	for _, o := range offerings {
		current := false
		for _, p := range org.Plans {
			if p.ID == o.ID {
				current = true
				break
			}
		}
		page.Offerings = append(page.Offerings, planRow{Offering: o, Current: current})
	}
	return org, page, nil
}

func (s *Server) showPlans(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("orgID")
	_, page, err := s.loadPlansPage(r, orgID)
	if err != nil {
		s.render(w, "plans", plansPage{OrgID: orgID, Message: err.Error()})
		return
	}
	s.render(w, "plans", page)
}

func (s *Server) submitPlan(w http.ResponseWriter, r *http.Request) {
	orgID := r.FormValue("orgID")
	nickname := r.FormValue("plan")

	org, page, err := s.loadPlansPage(r, orgID)
	if err != nil {
		s.render(w, "plans", plansPage{OrgID: orgID, Message: err.Error()})
		return
	}

	offerings := make([]billing.Offering, len(page.Offerings))
	for i, row := range page.Offerings {
		offerings[i] = row.Offering
	}

	res, err := s.plans.SubmitPlan(r.Context(), org, offerings, nickname)
	if err != nil {
		if errors.Is(err, ErrSubmitInFlight) {
			page.Message = "Submission already in progress"
			s.render(w, "plans", page)
			return
		}
		page.Message = err.Error()
		s.render(w, "plans", page)
		return
	}
	if res.Message != "" {
		page.Message = res.Message
		s.render(w, "plans", page)
		return
	}
	http.Redirect(w, r, res.NavigateTo, http.StatusSeeOther)
}

type checkoutPage struct {
	PaymentRef     string
	OrgID          string
	PublishableKey string
	ShowForm       bool
	Message        string
}

// showCheckout reconciles the payment's status before rendering: a payment
// that already resolved shows only its outcome message, the form appears
// only while the payment still needs a payment method.
func (s *Server) showCheckout(w http.ResponseWriter, r *http.Request) {
	paymentRef := r.URL.Query().Get("payment")
	orgID := r.URL.Query().Get("id")
	if paymentRef == "" {
		http.Redirect(w, r, "/organization", http.StatusFound)
		return
	}

	res := s.reconciler.Reconcile(r.Context(), paymentRef)
	if res.Outcome.Terminal() {
		s.dropConfirmFlow(paymentRef)
	}
	page := checkoutPage{
		PaymentRef: paymentRef,
		OrgID:      orgID,
		ShowForm:   !res.Outcome.Terminal(),
		Message:    res.Message,
	}
	if page.ShowForm {
		if cfg, err := s.api.GetConfig(r.Context()); err == nil {
			page.PublishableKey = cfg.PublishableKey
		} else {
			s.logger.Error("fetch provider config", "error", err)
		}
	}
	s.render(w, "checkout", page)
}

func (s *Server) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	paymentRef := r.FormValue("payment")
	orgID := r.FormValue("id")
	paymentMethod := r.FormValue("payment_method")
	if paymentRef == "" {
		http.Redirect(w, r, "/organization", http.StatusFound)
		return
	}

	msg, err := s.confirmFlow(paymentRef).Confirm(r.Context(), paymentRef, paymentMethod, orgID)
	if err != nil {
		if errors.Is(err, checkout.ErrConfirmInFlight) {
			msg = "Payment already processing"
		} else {
			msg = err.Error()
		}
	}
	if msg == "" {
		s.dropConfirmFlow(paymentRef)
		http.Redirect(w, r, "/organization/"+orgID, http.StatusSeeOther)
		return
	}

	page := checkoutPage{
		PaymentRef: paymentRef,
		OrgID:      orgID,
		ShowForm:   true,
		Message:    msg,
	}
	if cfg, cfgErr := s.api.GetConfig(r.Context()); cfgErr == nil {
		page.PublishableKey = cfg.PublishableKey
	}
	s.render(w, "checkout", page)
}
