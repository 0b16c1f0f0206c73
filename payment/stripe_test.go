package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"
)

// captureBackend routes stripe-go at a local server that records the request
// and answers with a minimal payment intent.
func captureBackend(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:           stripe.String(srv.URL),
		LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
	}))
	t.Cleanup(func() {
		stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{}))
	})
}

func TestRetrieveIntentSendsClientSecret(t *testing.T) {
	var gotPath, gotSecret string
	captureBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSecret = r.URL.Query().Get("client_secret")
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"requires_payment_method"}`))
	})

	c := NewStripeIntentClient("sk_test_abc")
	intent, err := c.RetrieveIntent(context.Background(), "pi_1_secret_x")
	if err != nil {
		t.Fatalf("RetrieveIntent: %v", err)
	}
	if gotPath != "/v1/payment_intents/pi_1" {
		t.Errorf("path = %q", gotPath)
	}
	// Stripe rejects retrievals authorized with less than a full secret key
	// unless the client secret accompanies the request.
	if gotSecret != "pi_1_secret_x" {
		t.Errorf("client_secret = %q, want the payment reference", gotSecret)
	}
	if intent.Status != StatusRequiresPaymentMethod {
		t.Errorf("status = %q", intent.Status)
	}
}

func TestConfirmSendsPaymentMethodAndReturnURL(t *testing.T) {
	var gotPath, gotMethod, gotReturnURL string
	captureBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotPath = r.URL.Path
		gotMethod = r.PostFormValue("payment_method")
		gotReturnURL = r.PostFormValue("return_url")
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"succeeded"}`))
	})

	c := NewStripeIntentClient("sk_test_abc")
	intent, err := c.Confirm(context.Background(), "pi_1_secret_x", "pm_123", "http://console.local/organization/7")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if gotPath != "/v1/payment_intents/pi_1/confirm" {
		t.Errorf("path = %q", gotPath)
	}
	if gotMethod != "pm_123" {
		t.Errorf("payment_method = %q, want pm_123", gotMethod)
	}
	if gotReturnURL != "http://console.local/organization/7" {
		t.Errorf("return_url = %q", gotReturnURL)
	}
	if intent.Status != StatusSucceeded {
		t.Errorf("status = %q", intent.Status)
	}
}

func TestConfirmWithoutPaymentMethodOmitsField(t *testing.T) {
	var hasMethod bool
	captureBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		_, hasMethod = r.PostForm["payment_method"]
		_, _ = w.Write([]byte(`{"id":"pi_1","status":"succeeded"}`))
	})

	c := NewStripeIntentClient("sk_test_abc")
	if _, err := c.Confirm(context.Background(), "pi_1_secret_x", "", "http://console.local/"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if hasMethod {
		t.Error("payment_method sent for a resumed confirmation")
	}
}
