package store

// Organization is a billing customer with at most one active subscription.
// JSON field names are the wire contract consumed by the console client.
type Organization struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	CustomerID         string     `json:"stripe_id"`
	SubscriptionID     string     `json:"stripe_sub"`
	SubscriptionStatus string     `json:"sub_status"`
	Plans              []PlanItem `json:"plans"`
}

// PlanItem is one paid component of an organization's subscription,
// snapshotted from the provider when the subscription changes.
type PlanItem struct {
	ID             string  `json:"id"`     // provider price id
	ItemID         string  `json:"si_id"`  // subscription item id
	SubscriptionID string  `json:"sub_id"` // owning subscription id
	Active         bool    `json:"active"`
	Quantity       int64   `json:"quantity"`
	Amount         int64   `json:"amount"` // minor currency units
	Product        Product `json:"product"`
}

// Product describes what a plan item sells.
type Product struct {
	ID          string `json:"id"`
	Active      bool   `json:"active"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SubscriptionSnapshot is the provider-derived state written back to an
// organization row when its subscription is created, updated, or replaced.
type SubscriptionSnapshot struct {
	SubscriptionID string
	Status         string
	Plans          []PlanItem
}
