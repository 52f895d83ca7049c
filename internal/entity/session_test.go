package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedParticipant(i int) Participant {
	p := validParticipant()
	p.Email = p.Email[:6] + string(rune('0'+i)) + "@example.com"
	return p
}

func sessionAtLastStep(t *testing.T, quantity int) *PurchaseSession {
	t.Helper()
	s, err := NewPurchaseSession("s1", "e1", quantity)
	require.NoError(t, err)
	for i := 0; i < quantity-1; i++ {
		require.NoError(t, s.Advance(numberedParticipant(i)))
	}
	return s
}

func TestNewPurchaseSession(t *testing.T) {
	s, err := NewPurchaseSession("s1", "e1", 3)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, s.State)
	assert.Equal(t, 0, s.Current)
	assert.Len(t, s.Participants, 3)

	_, err = NewPurchaseSession("s1", "e1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSessionStepper(t *testing.T) {
	s, err := NewPurchaseSession("s1", "e1", 3)
	require.NoError(t, err)

	// Advancing past an invalid record is rejected.
	invalid := validParticipant()
	invalid.Email = "nope"
	var fieldErrs FieldErrors
	require.ErrorAs(t, s.Advance(invalid), &fieldErrs)
	assert.Equal(t, 0, s.Current)

	require.NoError(t, s.Advance(numberedParticipant(0)))
	assert.Equal(t, 1, s.Current)

	// Back steps to the previous record; a no-op at the first one.
	require.NoError(t, s.Back())
	assert.Equal(t, 0, s.Current)
	require.NoError(t, s.Back())
	assert.Equal(t, 0, s.Current)

	// At the last index only submit moves forward.
	require.NoError(t, s.Advance(numberedParticipant(0)))
	require.NoError(t, s.Advance(numberedParticipant(1)))
	assert.True(t, s.AtLastStep())
	assert.ErrorIs(t, s.Advance(numberedParticipant(2)), ErrInvalidTransition)
}

func TestSessionDraftsAreNotValidated(t *testing.T) {
	s, err := NewPurchaseSession("s1", "e1", 2)
	require.NoError(t, err)

	draft := Participant{Name: "G"}
	require.NoError(t, s.SaveCurrent(draft))
	assert.Equal(t, draft, s.Participants[0])
}

func TestSessionSubmitOutcomes(t *testing.T) {
	tests := []struct {
		name          string
		mode          PurchaseMode
		nonMembers    []string
		expectedErr   error
		expectedState SessionState
	}{
		{
			name:          "public with non-members completes",
			mode:          ModePublic,
			nonMembers:    []string{"a@example.com"},
			expectedState: StateCompleted,
		},
		{
			name:          "all members completes under any mode",
			mode:          ModeOnlyRegisteredMembers,
			nonMembers:    nil,
			expectedState: StateCompleted,
		},
		{
			name:          "registered-only blocks non-members",
			mode:          ModeOnlyRegisteredMembers,
			nonMembers:    []string{"a@example.com"},
			expectedErr:   ErrMembersOnly,
			expectedState: StateEditing,
		},
		{
			name:          "auto-enroll requires consent for non-members",
			mode:          ModeOnlyMembers,
			nonMembers:    []string{"a@example.com"},
			expectedState: StateConsentRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessionAtLastStep(t, 2)
			require.NoError(t, s.BeginSubmit(numberedParticipant(1)))
			assert.Equal(t, StateSubmitting, s.State)

			err := s.ApplyEligibility(tt.mode, EligibilityResult{NonMembers: tt.nonMembers})
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedState, s.State)

			if tt.expectedErr != nil {
				// A hard block keeps the unmatched participants so
				// they can be shown to the buyer.
				assert.Equal(t, tt.nonMembers, s.NonMembers)
			}
		})
	}
}

func TestSessionConsentGate(t *testing.T) {
	s := sessionAtLastStep(t, 2)
	require.NoError(t, s.BeginSubmit(numberedParticipant(1)))
	require.NoError(t, s.ApplyEligibility(ModeOnlyMembers, EligibilityResult{NonMembers: []string{"a@example.com"}}))

	require.Equal(t, StateConsentRequired, s.State)
	assert.True(t, s.FieldsLocked())
	assert.False(t, s.CanClose())

	// Fields are locked while consent is pending.
	assert.ErrorIs(t, s.SaveCurrent(numberedParticipant(0)), ErrFieldsLocked)
	assert.ErrorIs(t, s.Advance(numberedParticipant(0)), ErrFieldsLocked)
	assert.ErrorIs(t, s.Back(), ErrFieldsLocked)

	// Finalize is blocked until the checkbox is checked.
	assert.ErrorIs(t, s.Finalize(), ErrConsentRequired)

	require.NoError(t, s.SetConsent(true))
	assert.True(t, s.CanClose())

	// Unchecking re-blocks both finalize and close.
	require.NoError(t, s.SetConsent(false))
	assert.ErrorIs(t, s.Finalize(), ErrConsentRequired)
	assert.False(t, s.CanClose())

	require.NoError(t, s.SetConsent(true))
	require.NoError(t, s.Finalize())
	assert.Equal(t, StateCompleted, s.State)
}

func TestSessionFailSubmit(t *testing.T) {
	s := sessionAtLastStep(t, 1)
	require.NoError(t, s.BeginSubmit(numberedParticipant(0)))

	s.FailSubmit()
	assert.Equal(t, StateEditing, s.State)

	// The submit can be retried.
	require.NoError(t, s.BeginSubmit(numberedParticipant(0)))
	assert.Equal(t, StateSubmitting, s.State)
}

func TestSessionConsentOutsideConsentState(t *testing.T) {
	s, err := NewPurchaseSession("s1", "e1", 1)
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetConsent(true), ErrInvalidTransition)
	assert.ErrorIs(t, s.Finalize(), ErrInvalidTransition)
}
