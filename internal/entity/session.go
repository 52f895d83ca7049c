package entity

import (
	"time"
)

// SessionState tags the purchase session's position in the collection flow.
// Field locking and close-blocking are derived from the tag alone, so a
// session can never be "locked" without being in the consent step.
type SessionState string

const (
	// StateEditing collects participant records one index at a time.
	StateEditing SessionState = "editing"
	// StateSubmitting marks an in-flight eligibility check.
	StateSubmitting SessionState = "submitting"
	// StateConsentRequired waits for the buyer to acknowledge that
	// non-member participants will be enrolled as members.
	StateConsentRequired SessionState = "consent_required"
	// StateCompleted means all records are collected and cleared for payment.
	StateCompleted SessionState = "completed"
)

// PurchaseSession is the server-owned stepper collecting N participant
// records before checkout. One record is edited at a time; a record index
// is only reachable after every earlier record validated.
type PurchaseSession struct {
	ID             string        `json:"id"`
	EventID        string        `json:"event_id"`
	Quantity       int           `json:"quantity"`
	State          SessionState  `json:"state"`
	Current        int           `json:"current"`
	Participants   []Participant `json:"participants"`
	NonMembers     []string      `json:"non_members,omitempty"`
	ConsentChecked bool          `json:"consent_checked"`
	CreatedAt      time.Time     `json:"created_at"`
}

// NewPurchaseSession opens a fresh session with quantity empty participant
// slots, positioned at the first one.
func NewPurchaseSession(id, eventID string, quantity int) (*PurchaseSession, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	return &PurchaseSession{
		ID:           id,
		EventID:      eventID,
		Quantity:     quantity,
		State:        StateEditing,
		Current:      0,
		Participants: make([]Participant, quantity),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// FieldsLocked reports whether participant records are read-only.
func (s *PurchaseSession) FieldsLocked() bool {
	return s.State == StateConsentRequired
}

// AtLastStep reports whether the current index is the final participant.
func (s *PurchaseSession) AtLastStep() bool {
	return s.Current == s.Quantity-1
}

// SaveCurrent stores the draft record at the current index without
// validation. Only meaningful while editing.
func (s *PurchaseSession) SaveCurrent(p Participant) error {
	if s.State != StateEditing {
		if s.FieldsLocked() {
			return ErrFieldsLocked
		}
		return ErrInvalidTransition
	}
	s.Participants[s.Current] = p
	return nil
}

// Advance validates the given record for the current index and moves to the
// next one. Rejected at the last index; Submit is the only way out of it.
func (s *PurchaseSession) Advance(p Participant) error {
	if s.State != StateEditing {
		if s.FieldsLocked() {
			return ErrFieldsLocked
		}
		return ErrInvalidTransition
	}
	if s.AtLastStep() {
		return ErrInvalidTransition
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.Participants[s.Current] = p
	s.Current++
	return nil
}

// Back steps to the previous participant. A no-op at index 0, blocked while
// fields are locked by the consent requirement.
func (s *PurchaseSession) Back() error {
	if s.State != StateEditing {
		if s.FieldsLocked() {
			return ErrFieldsLocked
		}
		return ErrInvalidTransition
	}
	if s.Current > 0 {
		s.Current--
	}
	return nil
}

// BeginSubmit validates the final record plus every earlier one and moves
// the session into the in-flight eligibility check.
func (s *PurchaseSession) BeginSubmit(p Participant) error {
	if s.State != StateEditing {
		if s.FieldsLocked() {
			return ErrFieldsLocked
		}
		return ErrInvalidTransition
	}
	if !s.AtLastStep() {
		return ErrInvalidTransition
	}
	if err := p.Validate(); err != nil {
		return err
	}
	s.Participants[s.Current] = p
	for i := range s.Participants {
		if err := s.Participants[i].Validate(); err != nil {
			return err
		}
	}
	s.State = StateSubmitting
	return nil
}

// ApplyEligibility resolves the in-flight check against the purchase mode.
// Under the registered-members-only mode any non-member is a hard block and
// the session returns to editing; under auto-enroll mode non-members require
// consent; everywhere else the result is informational.
func (s *PurchaseSession) ApplyEligibility(mode PurchaseMode, result EligibilityResult) error {
	if s.State != StateSubmitting {
		return ErrInvalidTransition
	}

	s.NonMembers = result.NonMembers

	if len(result.NonMembers) > 0 {
		switch mode {
		case ModeOnlyRegisteredMembers:
			// The unmatched participants stay on the session so the
			// buyer can see which entered data did not match.
			s.State = StateEditing
			return ErrMembersOnly
		case ModeOnlyMembers:
			s.State = StateConsentRequired
			s.ConsentChecked = false
			return nil
		}
	}

	s.State = StateCompleted
	return nil
}

// FailSubmit returns the session to its current editing step after a
// backend failure, so the submit can be retried.
func (s *PurchaseSession) FailSubmit() {
	if s.State == StateSubmitting {
		s.State = StateEditing
	}
}

// SetConsent records the consent checkbox. Unchecking re-blocks Finalize.
func (s *PurchaseSession) SetConsent(checked bool) error {
	if s.State != StateConsentRequired {
		return ErrInvalidTransition
	}
	s.ConsentChecked = checked
	return nil
}

// Finalize completes a consent-gated session. Only available once the
// consent checkbox is checked.
func (s *PurchaseSession) Finalize() error {
	if s.State != StateConsentRequired {
		return ErrInvalidTransition
	}
	if !s.ConsentChecked {
		return ErrConsentRequired
	}
	s.State = StateCompleted
	return nil
}

// CanClose reports whether the session may be discarded. While consent is
// required and not yet given, every close path is blocked.
func (s *PurchaseSession) CanClose() bool {
	return !(s.State == StateConsentRequired && !s.ConsentChecked)
}
