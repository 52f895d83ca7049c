package entity

import (
	"time"
)

type Event struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Date           EventDate `json:"date" db:"date"`
	StartTime      string    `json:"start_time" db:"start_time"`
	EndTime        string    `json:"end_time" db:"end_time"`
	Location       string    `json:"location" db:"location"`
	Price          *int64    `json:"price" db:"price"`
	Fee            int64     `json:"fee" db:"fee"`
	MembershipFee  int64     `json:"membership_fee" db:"membership_fee"`
	Lineup         []string  `json:"lineup" db:"lineup"`
	Note           string    `json:"note" db:"note"`
	Active         bool      `json:"active" db:"active"`
	ImageURL       string    `json:"image_url" db:"image_url"`
	OnlyMembers    bool      `json:"only_members" db:"only_members"`
	PurchasePolicy string    `json:"purchase_policy" db:"purchase_policy"`
	PhotosReady    bool      `json:"photos_ready" db:"photos_ready"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Purchasable reports whether tickets can be sold for the event: a price must
// be set, the event must be active and its date must not be in the past.
// All purchase-policy branching happens after this check.
func (e *Event) Purchasable(now time.Time) bool {
	if e == nil {
		return false
	}
	return e.Price != nil && e.Active && !e.Date.Past(now)
}

// PriceValue returns the ticket price, zero when unset.
func (e *Event) PriceValue() int64 {
	if e == nil || e.Price == nil {
		return 0
	}
	return *e.Price
}
