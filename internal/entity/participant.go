package entity

import (
	"regexp"
	"strings"
)

// Participant is one ticket holder's data as collected by the purchase flow.
type Participant struct {
	Name              string `json:"name"`
	Surname           string `json:"surname"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Birthdate         string `json:"birthdate"`
	NewsletterConsent bool   `json:"newsletter_consent,omitempty"`
}

var (
	emailPattern     = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	birthdatePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
)

// FieldErrors maps a participant field name to its validation message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, msg := range f {
		parts = append(parts, field+": "+msg)
	}
	return "invalid participant data: " + strings.Join(parts, "; ")
}

// Validate checks the per-field format rules applied before the stepper
// may advance. Returns nil or a FieldErrors describing every violation.
func (p *Participant) Validate() error {
	errs := FieldErrors{}

	if len(strings.TrimSpace(p.Name)) < 2 {
		errs["name"] = "must be at least 2 characters"
	}
	if len(strings.TrimSpace(p.Surname)) < 2 {
		errs["surname"] = "must be at least 2 characters"
	}
	if !emailPattern.MatchString(p.Email) {
		errs["email"] = "must be a valid email address"
	}
	if len(strings.TrimSpace(p.Phone)) < 8 {
		errs["phone"] = "must be at least 8 characters"
	}
	if !birthdatePattern.MatchString(p.Birthdate) {
		errs["birthdate"] = "must match DD-MM-YYYY"
	} else if _, err := ParseEventDate(p.Birthdate); err != nil {
		errs["birthdate"] = "is not a real date"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Key is the identifier the eligibility check and duplicate detection use
// for a participant.
func (p *Participant) Key() string {
	return strings.ToLower(strings.TrimSpace(p.Email))
}

// EligibilityResult is the outcome of the membership check for a set of
// participants. NonMembers holds the keys of participants not found in the
// membership registry; the purchase mode decides what that means.
type EligibilityResult struct {
	Valid      bool     `json:"valid"`
	NonMembers []string `json:"nonMembers"`
	// Errors lists validation problems when Valid is false for a reason
	// other than membership, one entry per offending participant.
	Errors []string `json:"errors,omitempty"`
}
