package console

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/orgbill/console/billing"
	"github.com/orgbill/console/client"
	"github.com/orgbill/console/store"
)

// ErrSubmitInFlight is returned when a plan submission for the same
// organization is already running.
var ErrSubmitInFlight = errors.New("console: plan submission already in flight")

// SubmitResult is the outcome of a plan submission. Exactly one of
// NavigateTo and Message is set: NavigateTo on success, Message when the
// backend or transport failed and the user stays on the plans page.
type SubmitResult struct {
	NavigateTo string
	Message    string
}

// PlanFlow submits plan selections to the backend, choosing between a new
// subscription and a plan change based on what the organization already
// holds.
type PlanFlow struct {
	api *client.Client

	mu       sync.Mutex
	inFlight map[int64]bool
}

// NewPlanFlow creates a PlanFlow backed by the API client.
func NewPlanFlow(api *client.Client) *PlanFlow {
	return &PlanFlow{api: api, inFlight: make(map[int64]bool)}
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

// holdsOfferedPlan reports whether any of the organization's current plan
// ids matches an offered price id. A match means the organization is an
// existing subscriber and the submission is a plan change.
func holdsOfferedPlan(org *store.Organization, offerings []billing.Offering) bool {
	for _, p := range org.Plans {
		if billing.OfferingByID(offerings, p.ID) != nil {
			return true
		}
	}
	return false
}

// SubmitPlan subscribes the organization to the named plan, or changes its
// plan when it already holds one from the catalog. On success the result
// navigates to checkout when a payment still needs confirmation, otherwise
// to the organization's detail page. Backend and transport failures are
// returned as a display message with no navigation. A concurrent submission
// for the same organization returns ErrSubmitInFlight.
func (f *PlanFlow) SubmitPlan(ctx context.Context, org *store.Organization, offerings []billing.Offering, nickname string) (SubmitResult, error) {
	f.mu.Lock()
	if f.inFlight[org.ID] {
		f.mu.Unlock()
		return SubmitResult{}, ErrSubmitInFlight
	}
	f.inFlight[org.ID] = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.inFlight, org.ID)
		f.mu.Unlock()
	}()

	orgID := formatID(org.ID)

	var res *client.SubResult
	var err error
	if holdsOfferedPlan(org, offerings) {
		res, err = f.api.ChangePlan(ctx, orgID, nickname)
	} else {
		res, err = f.api.Subscribe(ctx, orgID, nickname)
	}
	if err != nil {
		// APIError text is the backend's plain-text body; anything else is
		// a transport failure. Both are shown verbatim.
		return SubmitResult{Message: err.Error()}, nil
	}

	if res.ClientSecret != "" {
		return SubmitResult{NavigateTo: "/checkout?payment=" + res.ClientSecret + "&id=" + orgID}, nil
	}
	return SubmitResult{NavigateTo: "/organization/" + orgID}, nil
}
