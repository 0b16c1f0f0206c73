package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/store"
)

func TestWebhookSubscriptionUpserted(t *testing.T) {
	router, st, provider := newTestRouter()
	st.Seed(&store.Organization{ID: 1, Name: "Acme", Email: "a@acme.test", CustomerID: "cus_1"})
	provider.Event = &billing.WebhookEvent{
		Kind:       billing.WebhookSubscriptionUpserted,
		CustomerID: "cus_1",
		Snapshot: store.SubscriptionSnapshot{
			SubscriptionID: "sub_1",
			Status:         billing.StatusActive,
			Plans:          []store.PlanItem{{ID: "price_a", Active: true}},
		},
	}

	rec := doRequest(router, http.MethodPost, "/stripe/webhook", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	org, _ := st.Get(context.Background(), 1)
	if org.SubscriptionID != "sub_1" || org.SubscriptionStatus != billing.StatusActive {
		t.Errorf("snapshot not applied: %+v", org)
	}
	if len(org.Plans) != 1 {
		t.Errorf("plan items not applied: %+v", org.Plans)
	}
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	router, st, provider := newTestRouter()
	st.Seed(&store.Organization{ID: 1, Name: "Acme", Email: "a@acme.test", CustomerID: "cus_1", SubscriptionID: "sub_1", SubscriptionStatus: billing.StatusActive})
	provider.Event = &billing.WebhookEvent{
		Kind:           billing.WebhookSubscriptionDeleted,
		SubscriptionID: "sub_1",
	}

	rec := doRequest(router, http.MethodPost, "/stripe/webhook", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	org, _ := st.Get(context.Background(), 1)
	if org.SubscriptionID != "" || org.SubscriptionStatus != "" {
		t.Errorf("snapshot not cleared: %+v", org)
	}
}

func TestWebhookIgnoredEvent(t *testing.T) {
	router, st, _ := newTestRouter()
	st.Seed(&store.Organization{ID: 1, Name: "Acme", Email: "a@acme.test", CustomerID: "cus_1", SubscriptionID: "sub_1"})

	rec := doRequest(router, http.MethodPost, "/stripe/webhook", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	org, _ := st.Get(context.Background(), 1)
	if org.SubscriptionID != "sub_1" {
		t.Errorf("ignored event mutated the store: %+v", org)
	}
}

func TestWebhookBadSignature(t *testing.T) {
	router, _, provider := newTestRouter()
	provider.ParseWebhookErr = errors.New("signature mismatch")

	rec := doRequest(router, http.MethodPost, "/stripe/webhook", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookStoreFailureAsksForRedelivery(t *testing.T) {
	router, st, provider := newTestRouter()
	st.UpdateErr = errors.New("disk full")
	provider.Event = &billing.WebhookEvent{
		Kind:       billing.WebhookSubscriptionUpserted,
		CustomerID: "cus_1",
	}

	rec := doRequest(router, http.MethodPost, "/stripe/webhook", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestPlansEndpoint(t *testing.T) {
	router, _, provider := newTestRouter()
	seedOfferings(provider)

	rec := doRequest(router, http.MethodGet, "/plans", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var offerings []billing.Offering
	if err := json.Unmarshal(rec.Body.Bytes(), &offerings); err != nil {
		t.Fatal(err)
	}
	if len(offerings) != 2 {
		t.Errorf("len = %d, want 2", len(offerings))
	}
}

func TestConfigEndpoint(t *testing.T) {
	router, _, _ := newTestRouter()

	rec := doRequest(router, http.MethodGet, "/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cfg struct {
		PublishableKey string `json:"publishableKey"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.PublishableKey != "pk_test_123" {
		t.Errorf("publishableKey = %q", cfg.PublishableKey)
	}
}
