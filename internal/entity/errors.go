package entity

import "errors"

var (
	// Event errors
	ErrEventNotFound       = errors.New("event not found")
	ErrEventNotPurchasable = errors.New("event is not purchasable")
	ErrOnRequestOnly       = errors.New("event tickets are available on request only")

	// Purchase session errors
	ErrSessionNotFound   = errors.New("purchase session not found")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidTransition = errors.New("operation not allowed in current session state")
	ErrFieldsLocked      = errors.New("participant data is locked pending consent")
	ErrConsentRequired   = errors.New("explicit consent is required to proceed")
	ErrCloseBlocked      = errors.New("session cannot be closed until consent is given")
	ErrMembersOnly       = errors.New("event is reserved to registered members")

	// Order / payment errors
	ErrDuplicateParticipants = errors.New("duplicate_participants")
	ErrPurchaseNotFound      = errors.New("purchase not found")

	// Check-in errors
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrAlreadyCheckedIn = errors.New("ticket already checked in")

	// Admin / job errors
	ErrJobNotFound  = errors.New("job not found")
	ErrNoRecipients = errors.New("event has no ticket holders to notify")
	ErrUnauthorized = errors.New("unauthorized access")
)

// MsgDuplicateParticipants is surfaced verbatim to the buyer when one of the
// cart participants already holds a ticket for the event.
const MsgDuplicateParticipants = "Uno o più partecipanti risultano già tesserati per questo evento"
