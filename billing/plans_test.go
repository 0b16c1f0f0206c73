package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/orgbill/console/store"
)

func TestSortOfferingsAscendingByUnitAmount(t *testing.T) {
	offerings := []Offering{
		{ID: "price_c", UnitAmount: 500},
		{ID: "price_a", UnitAmount: 100},
		{ID: "price_b", UnitAmount: 300},
	}
	SortOfferings(offerings)

	want := []int64{100, 300, 500}
	for i, amount := range want {
		if offerings[i].UnitAmount != amount {
			t.Errorf("offerings[%d].UnitAmount = %d, want %d", i, offerings[i].UnitAmount, amount)
		}
	}
}

func TestSortOfferingsStable(t *testing.T) {
	offerings := []Offering{
		{ID: "first", UnitAmount: 100},
		{ID: "second", UnitAmount: 100},
		{ID: "cheapest", UnitAmount: 50},
	}
	SortOfferings(offerings)

	if offerings[0].ID != "cheapest" {
		t.Errorf("offerings[0] = %s, want cheapest", offerings[0].ID)
	}
	if offerings[1].ID != "first" || offerings[2].ID != "second" {
		t.Errorf("equal amounts reordered: %s, %s", offerings[1].ID, offerings[2].ID)
	}
}

func TestCatalogLookup(t *testing.T) {
	c := Catalog{"planB": "price_2", "planA": "price_1"}

	if id, ok := c.PriceID("planA"); !ok || id != "price_1" {
		t.Errorf("PriceID(planA) = %q, %v", id, ok)
	}
	if _, ok := c.PriceID("planC"); ok {
		t.Error("PriceID(planC) should not resolve")
	}

	names := c.Nicknames()
	if len(names) != 2 || names[0] != "planA" || names[1] != "planB" {
		t.Errorf("Nicknames() = %v, want sorted [planA planB]", names)
	}
}

func TestOfferingLookups(t *testing.T) {
	offerings := []Offering{
		{ID: "price_1", Nickname: "planA"},
		{ID: "price_2", Nickname: "planB"},
	}
	if o := OfferingByID(offerings, "price_2"); o == nil || o.Nickname != "planB" {
		t.Errorf("OfferingByID(price_2) = %+v", o)
	}
	if o := OfferingByID(offerings, "price_9"); o != nil {
		t.Errorf("OfferingByID(price_9) = %+v, want nil", o)
	}
	if o := OfferingByNickname(offerings, "planA"); o == nil || o.ID != "price_1" {
		t.Errorf("OfferingByNickname(planA) = %+v", o)
	}
}

func TestMockProviderSubscribeReplacesCurrent(t *testing.T) {
	m := NewMockSubscriptionProvider()
	m.Offerings = []Offering{
		{ID: "price_1", Nickname: "planA", UnitAmount: 100, Product: store.Product{ID: "prod_1", Name: "A"}},
		{ID: "price_2", Nickname: "planB", UnitAmount: 300},
	}
	ctx := context.Background()

	first, err := m.Subscribe(ctx, "cus_1", "", "planA")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if first.Status != StatusIncomplete {
		t.Errorf("new subscription status = %q, want incomplete", first.Status)
	}
	if len(first.Plans) != 1 || first.Plans[0].ID != "price_1" {
		t.Errorf("handle plans = %+v", first.Plans)
	}

	second, err := m.Subscribe(ctx, "cus_1", first.ID, "planB")
	if err != nil {
		t.Fatalf("Subscribe (change): %v", err)
	}
	if second.ID == first.ID {
		t.Error("plan change should create a new subscription")
	}
	if len(m.Canceled) != 1 || m.Canceled[0] != first.ID {
		t.Errorf("previous subscription not canceled: %v", m.Canceled)
	}

	if _, err := m.Subscribe(ctx, "cus_1", "", "nope"); !errors.Is(err, ErrUnknownPlan) {
		t.Errorf("unknown plan error = %v, want ErrUnknownPlan", err)
	}
}

func TestMockProviderCancel(t *testing.T) {
	m := NewMockSubscriptionProvider()
	m.Offerings = []Offering{{ID: "price_1", Nickname: "planA"}}

	h, err := m.Subscribe(context.Background(), "cus_1", "", "planA")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := m.Cancel(context.Background(), h.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := m.Cancel(context.Background(), h.ID); !errors.Is(err, ErrSubscriptionGone) {
		t.Errorf("second Cancel = %v, want ErrSubscriptionGone", err)
	}
}
