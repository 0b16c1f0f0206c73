package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/orgbill/console/payment"
)

func TestConfirmFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "intent already succeeded",
			err:  &payment.ConfirmError{Message: "already paid", Intent: &payment.Intent{Status: payment.StatusSucceeded}},
			want: "Paid already",
		},
		{
			name: "intent canceled",
			err:  &payment.ConfirmError{Message: "gone", Intent: &payment.Intent{Status: payment.StatusCanceled}},
			want: "Payment Indent Canceled",
		},
		{
			name: "other status appends status line",
			err:  &payment.ConfirmError{Message: "Your card was declined.", Intent: &payment.Intent{Status: payment.StatusRequiresPaymentMethod}},
			want: "Your card was declined.\n\npayment indent status : requires_payment_method",
		},
		{
			name: "no embedded intent",
			err:  &payment.ConfirmError{Message: "Your card number is invalid."},
			want: "Your card number is invalid.",
		},
		{
			name: "transport error",
			err:  errors.New("connection reset"),
			want: "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &payment.MockIntentClient{ConfirmErr: tt.err}
			flow := NewConfirmFlow(m, "http://console.local")

			msg, err := flow.Confirm(context.Background(), "pi_1_secret_x", "pm_1", "7")
			if err != nil {
				t.Fatalf("Confirm: %v", err)
			}
			if msg != tt.want {
				t.Errorf("message = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestConfirmSuccessHasNoMessage(t *testing.T) {
	m := &payment.MockIntentClient{ConfirmResult: &payment.Intent{Status: payment.StatusSucceeded}}
	flow := NewConfirmFlow(m, "http://console.local")

	msg, err := flow.Confirm(context.Background(), "pi_1_secret_x", "pm_1", "7")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if msg != "" {
		t.Errorf("message = %q, want empty", msg)
	}
	if m.LastReturnURL != "http://console.local/organization/7" {
		t.Errorf("return URL = %q", m.LastReturnURL)
	}
	if m.LastPaymentMethod != "pm_1" {
		t.Errorf("payment method = %q, want pm_1", m.LastPaymentMethod)
	}
}

func TestConfirmReturnURLWithoutOrg(t *testing.T) {
	flow := NewConfirmFlow(&payment.MockIntentClient{}, "http://console.local")
	if got := flow.ReturnURL(""); got != "http://console.local/" {
		t.Errorf("ReturnURL(\"\") = %q", got)
	}
}

// blockingIntentClient parks Confirm until released, to exercise the
// single-flight guard.
type blockingIntentClient struct {
	started   chan struct{}
	release   chan struct{}
	startOnce sync.Once
}

func (b *blockingIntentClient) RetrieveIntent(context.Context, string) (*payment.Intent, error) {
	return nil, errors.New("not scripted")
}

func (b *blockingIntentClient) HandleNextAction(context.Context, string) (*payment.Intent, error) {
	return nil, errors.New("not scripted")
}

func (b *blockingIntentClient) Confirm(context.Context, string, string, string) (*payment.Intent, error) {
	b.startOnce.Do(func() { close(b.started) })
	<-b.release
	return &payment.Intent{Status: payment.StatusSucceeded}, nil
}

func TestConfirmSingleFlight(t *testing.T) {
	b := &blockingIntentClient{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	flow := NewConfirmFlow(b, "http://console.local")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := flow.Confirm(context.Background(), "pi_1_secret_x", "pm_1", "7"); err != nil {
			t.Errorf("first Confirm: %v", err)
		}
	}()

	<-b.started
	if _, err := flow.Confirm(context.Background(), "pi_1_secret_x", "pm_1", "7"); !errors.Is(err, ErrConfirmInFlight) {
		t.Errorf("concurrent Confirm = %v, want ErrConfirmInFlight", err)
	}

	close(b.release)
	wg.Wait()

	// The guard resets once the first call finishes.
	if _, err := flow.Confirm(context.Background(), "pi_1_secret_x", "pm_1", "7"); err != nil {
		t.Errorf("Confirm after completion: %v", err)
	}
}
