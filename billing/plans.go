package billing

import (
	"sort"

	"github.com/orgbill/console/store"
)

// Catalog maps plan nicknames to provider price IDs. Nicknames are the
// console-facing plan names; price IDs must match the provider dashboard.
type Catalog map[string]string

// PriceID looks up the provider price id for a plan nickname.
func (c Catalog) PriceID(nickname string) (string, bool) {
	id, ok := c[nickname]
	return id, ok
}

// Nicknames returns the catalog's plan nicknames in stable (sorted) order.
func (c Catalog) Nicknames() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Recurring describes an offering's billing interval.
type Recurring struct {
	Interval string `json:"interval"`
}

// Offering is a purchasable subscription tier from the catalog: the
// provider price hydrated with its product, as served by GET /plans.
type Offering struct {
	ID         string            `json:"id"`
	Nickname   string            `json:"nickname"`
	UnitAmount int64             `json:"unit_amount"`
	Currency   string            `json:"currency"`
	Recurring  Recurring         `json:"recurring"`
	Metadata   map[string]string `json:"metadata"`
	Product    store.Product     `json:"product"`
}

// SortOfferings orders offerings ascending by unit amount. The sort is
// stable so equal-priced offerings keep their catalog order.
func SortOfferings(offerings []Offering) {
	sort.SliceStable(offerings, func(i, j int) bool {
		return offerings[i].UnitAmount < offerings[j].UnitAmount
	})
}

// OfferingByNickname looks up an offering by plan nickname. Returns nil if
// not found.
func OfferingByNickname(offerings []Offering, nickname string) *Offering {
	for i := range offerings {
		if offerings[i].Nickname == nickname {
			o := offerings[i]
			return &o
		}
	}
	return nil
}

// OfferingByID looks up an offering by price id. Returns nil if not found.
func OfferingByID(offerings []Offering, id string) *Offering {
	for i := range offerings {
		if offerings[i].ID == id {
			o := offerings[i]
			return &o
		}
	}
	return nil
}
