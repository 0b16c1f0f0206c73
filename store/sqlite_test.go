package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	return s
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	org := &Organization{Name: "Acme", Email: "billing@acme.test", CustomerID: "cus_1"}
	if err := s.Create(ctx, org); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if org.ID == 0 {
		t.Fatal("Create did not assign an id")
	}

	got, err := s.Get(ctx, org.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Acme" || got.Email != "billing@acme.test" || got.CustomerID != "cus_1" {
		t.Errorf("Get returned %+v", got)
	}
	if got.SubscriptionID != "" || got.SubscriptionStatus != "" || got.Plans != nil {
		t.Errorf("new organization should have no subscription state: %+v", got)
	}
}

func TestSQLiteStore_CreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	org := &Organization{Name: "Acme", Email: "billing@acme.test"}
	if err := s.Create(ctx, org); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := s.Create(ctx, &Organization{Name: "Acme", Email: "billing@acme.test"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_SubscriptionSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	org := &Organization{Name: "Acme", Email: "billing@acme.test", CustomerID: "cus_1"}
	if err := s.Create(ctx, org); err != nil {
		t.Fatalf("Create: %v", err)
	}

	snap := SubscriptionSnapshot{
		SubscriptionID: "sub_1",
		Status:         "incomplete",
		Plans: []PlanItem{{
			ID:             "price_basic",
			ItemID:         "si_1",
			SubscriptionID: "sub_1",
			Active:         true,
			Quantity:       1,
			Amount:         500,
			Product:        Product{ID: "prod_1", Active: true, Name: "Basic"},
		}},
	}
	if err := s.SetSubscription(ctx, org.ID, snap); err != nil {
		t.Fatalf("SetSubscription: %v", err)
	}

	got, err := s.Get(ctx, org.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SubscriptionID != "sub_1" || got.SubscriptionStatus != "incomplete" {
		t.Errorf("snapshot not applied: %+v", got)
	}
	if len(got.Plans) != 1 || got.Plans[0].ID != "price_basic" || got.Plans[0].Product.Name != "Basic" {
		t.Errorf("plans not round-tripped: %+v", got.Plans)
	}

	if err := s.ClearSubscription(ctx, "sub_1"); err != nil {
		t.Fatalf("ClearSubscription: %v", err)
	}
	got, err = s.Get(ctx, org.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SubscriptionID != "" || got.SubscriptionStatus != "" || got.Plans != nil {
		t.Errorf("subscription state not cleared: %+v", got)
	}
}

func TestSQLiteStore_SetSubscriptionByCustomer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	org := &Organization{Name: "Acme", Email: "billing@acme.test", CustomerID: "cus_7"}
	if err := s.Create(ctx, org); err != nil {
		t.Fatalf("Create: %v", err)
	}
	snap := SubscriptionSnapshot{SubscriptionID: "sub_7", Status: "active"}
	if err := s.SetSubscriptionByCustomer(ctx, "cus_7", snap); err != nil {
		t.Fatalf("SetSubscriptionByCustomer: %v", err)
	}

	got, err := s.GetByCustomer(ctx, "cus_7")
	if err != nil {
		t.Fatalf("GetByCustomer: %v", err)
	}
	if got.ID != org.ID || got.SubscriptionID != "sub_7" || got.SubscriptionStatus != "active" {
		t.Errorf("snapshot by customer not applied: %+v", got)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Acme", "Globex", "Initech"} {
		if err := s.Create(ctx, &Organization{Name: name, Email: name + "@example.test"}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}
	orgs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orgs) != 3 {
		t.Fatalf("expected 3 organizations, got %d", len(orgs))
	}
	if orgs[0].Name != "Acme" || orgs[2].Name != "Initech" {
		t.Errorf("unexpected order: %v, %v, %v", orgs[0].Name, orgs[1].Name, orgs[2].Name)
	}
}
