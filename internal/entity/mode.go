package entity

// PurchaseMode is the eligibility/pricing policy attached to an event.
// It is never stored: always a pure projection of the event's flags.
type PurchaseMode string

const (
	// ModePublic sells tickets to anyone.
	ModePublic PurchaseMode = "public"
	// ModeOnlyRegisteredMembers sells only to people already in the
	// membership registry; non-members are a hard block.
	ModeOnlyRegisteredMembers PurchaseMode = "only_already_registered_members"
	// ModeOnlyMembers sells to anyone but silently enrolls non-members as
	// part of checkout, after explicit consent. No surcharge.
	ModeOnlyMembers PurchaseMode = "only_members"
	// ModeOnRequest has no online checkout at all.
	ModeOnRequest PurchaseMode = "on_request"
)

// ResolvePurchaseMode maps an event's configuration flags to exactly one
// purchase mode. Total: missing or malformed flags resolve to ModePublic,
// a nil event included.
func ResolvePurchaseMode(e *Event) PurchaseMode {
	if e == nil {
		return ModePublic
	}

	// An explicit policy wins over the legacy only_members flag.
	switch PurchaseMode(e.PurchasePolicy) {
	case ModePublic, ModeOnlyRegisteredMembers, ModeOnlyMembers, ModeOnRequest:
		return PurchaseMode(e.PurchasePolicy)
	}

	if e.OnlyMembers {
		return ModeOnlyMembers
	}
	return ModePublic
}
