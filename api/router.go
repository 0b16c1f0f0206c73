package api

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/store"
)

// Config holds configuration for the API layer.
type Config struct {
	// PublishableKey is the payment provider's publishable key, served to
	// the console via GET /config.
	PublishableKey string

	// CreateRateLimit is the maximum number of requests per minute per IP
	// allowed on POST /organization/create. Defaults to 10 when zero.
	CreateRateLimit int

	// AllowedOrigins are the console origins permitted by CORS. Empty
	// allows any origin.
	AllowedOrigins []string

	Logger *slog.Logger
}

// NewRouter creates an http.Handler with all billing API routes registered.
func NewRouter(orgs store.OrganizationStore, provider billing.SubscriptionProvider, cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mw := NewMiddleware(orgs, logger)
	metrics := NewMetrics()

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, metrics.Instrument(pattern, h))
	}

	// --- Organizations ---
	orgH := NewOrgHandler(orgs, provider, logger)
	createRL := mw.RateLimit(cfg.CreateRateLimit)
	handle("GET /organization", http.HandlerFunc(orgH.List))
	handle("POST /organization/create", createRL(http.HandlerFunc(orgH.Create)))
	handle("GET /organization/{id}", mw.WithOrganization(http.HandlerFunc(orgH.Get)))

	// --- Subscriptions ---
	subH := NewSubscriptionHandler(orgs, provider, logger)
	handle("POST /organization/{id}/sub", mw.WithOrganization(http.HandlerFunc(subH.Subscribe)))
	handle("PUT /organization/{id}/sub", mw.WithOrganization(http.HandlerFunc(subH.Subscribe)))
	handle("GET /organization/{id}/sub", mw.WithOrganization(http.HandlerFunc(subH.Get)))
	handle("DELETE /organization/{id}/sub", mw.WithOrganization(http.HandlerFunc(subH.Cancel)))

	// --- Catalog ---
	plansH := NewPlansHandler(provider, cfg.PublishableKey, logger)
	handle("GET /plans", http.HandlerFunc(plansH.List))
	handle("GET /config", http.HandlerFunc(plansH.Config))

	// --- Webhooks ---
	webhookH := NewWebhookHandler(orgs, provider, logger)
	handle("POST /stripe/webhook", http.HandlerFunc(webhookH.Handle))

	// --- Operational ---
	mux.Handle("GET /metrics", metrics.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return mw.LogRequests(c.Handler(mux))
}
