package entity

import (
	"time"
)

type PurchaseStatus string

const (
	PurchaseStatusCreated   PurchaseStatus = "created"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
)

// Purchase is one checkout attempt: created when the provider order is
// opened, completed when the capture succeeds, failed when abandoned.
type Purchase struct {
	ID              string         `json:"id" db:"id"`
	EventID         string         `json:"event_id" db:"event_id"`
	ProviderOrderID string         `json:"provider_order_id" db:"provider_order_id"`
	PurchaseType    string         `json:"purchase_type" db:"purchase_type"`
	Status          PurchaseStatus `json:"status" db:"status"`
	Quantity        int            `json:"quantity" db:"quantity"`
	Amount          int64          `json:"amount" db:"amount"`
	PaymentMethod   string         `json:"payment_method" db:"payment_method"`
	PurchaseMode    PurchaseMode   `json:"purchase_mode" db:"purchase_mode"`
	Participants    []Participant  `json:"participants" db:"participants"`
	NonMembers      []string       `json:"non_members" db:"non_members"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Ticket is one participant's entry for an event, written when the purchase
// completes. Check-in stamps it exactly once.
type Ticket struct {
	ID                string     `json:"id" db:"id"`
	PurchaseID        string     `json:"purchase_id" db:"purchase_id"`
	EventID           string     `json:"event_id" db:"event_id"`
	Name              string     `json:"name" db:"name"`
	Surname           string     `json:"surname" db:"surname"`
	Email             string     `json:"email" db:"email"`
	Phone             string     `json:"phone" db:"phone"`
	Birthdate         string     `json:"birthdate" db:"birthdate"`
	NewsletterConsent bool       `json:"newsletter_consent" db:"newsletter_consent"`
	CheckedInAt       *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Member is an entry in the membership registry. Source records how the
// membership came to be (admin entry or checkout auto-enrollment).
type Member struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Surname   string    `json:"surname" db:"surname"`
	Email     string    `json:"email" db:"email"`
	Birthdate string    `json:"birthdate" db:"birthdate"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	MemberSourceAdmin      = "admin"
	MemberSourceAutoEnroll = "purchase_auto_enroll"
)

// NotifyJob tracks a notify-all-participants broadcast. Progress counters
// live in Redis while the job runs; Status moves running -> completed or
// cancelled.
type NotifyJob struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
)
