package entity

// CartMeta carries event-level results of the eligibility check alongside
// the cart, so the payment step knows who must be enrolled on capture.
type CartMeta struct {
	NonMembers []string `json:"nonMembers"`
}

// Cart is the purchase payload sent to order creation. Always derived fresh
// from event configuration and collected participants, never mutated.
type Cart struct {
	EventID       string        `json:"event_id"`
	Quantity      int           `json:"quantity"`
	Participants  []Participant `json:"participants"`
	Price         int64         `json:"price"`
	Fee           int64         `json:"fee"`
	MembershipFee int64         `json:"membership_fee"`
	Total         int64         `json:"total"`
	PurchaseMode  PurchaseMode  `json:"purchase_mode"`
	EventMeta     CartMeta      `json:"event_meta"`
}

// BuildCart derives the cart from the event configuration and the collected
// participants. Total is (price + fee) x quantity; the membership fee is
// listed but never added on top, since event pricing already accounts for
// the membership case and auto-enrollment carries no surcharge. A true
// newsletter consent is stamped onto every participant record, not onto
// the cart itself.
func BuildCart(e *Event, quantity int, participants []Participant, newsletterConsent bool, meta CartMeta) Cart {
	parts := make([]Participant, len(participants))
	copy(parts, participants)
	if newsletterConsent {
		for i := range parts {
			parts[i].NewsletterConsent = true
		}
	}

	price := e.PriceValue()

	return Cart{
		EventID:       e.ID,
		Quantity:      quantity,
		Participants:  parts,
		Price:         price,
		Fee:           e.Fee,
		MembershipFee: e.MembershipFee,
		Total:         (price + e.Fee) * int64(quantity),
		PurchaseMode:  ResolvePurchaseMode(e),
		EventMeta:     meta,
	}
}
