package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-events/ticketflow/internal/entity"
)

func testEvent(policy string) *entity.Event {
	price := int64(2000)
	date, _ := entity.ParseEventDate("31-12-2099")
	return &entity.Event{
		ID:             "e1",
		Title:          "Serata Jazz",
		Date:           date,
		Price:          &price,
		Fee:            100,
		Active:         true,
		PurchasePolicy: policy,
	}
}

func participantN(i int) entity.Participant {
	return entity.Participant{
		Name:      "Giulia",
		Surname:   "Rossi",
		Email:     "giulia" + string(rune('0'+i)) + "@example.com",
		Phone:     "3331234567",
		Birthdate: "15-04-1994",
	}
}

func TestOpenSession(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a session for a sellable event", func(t *testing.T) {
		svc := NewPurchaseService(newFakeEventRepo(testEvent("public")), newFakeMemberRepo(), newFakeSessionStore())

		session, err := svc.OpenSession(ctx, &OpenSessionRequest{EventID: "e1", Quantity: 3})
		require.NoError(t, err)
		assert.Equal(t, entity.StateEditing, session.State)
		assert.Len(t, session.Participants, 3)
	})

	t.Run("rejects on-request events", func(t *testing.T) {
		svc := NewPurchaseService(newFakeEventRepo(testEvent("on_request")), newFakeMemberRepo(), newFakeSessionStore())

		_, err := svc.OpenSession(ctx, &OpenSessionRequest{EventID: "e1", Quantity: 1})
		assert.ErrorIs(t, err, entity.ErrOnRequestOnly)
	})

	t.Run("rejects events without a price", func(t *testing.T) {
		event := testEvent("public")
		event.Price = nil
		svc := NewPurchaseService(newFakeEventRepo(event), newFakeMemberRepo(), newFakeSessionStore())

		_, err := svc.OpenSession(ctx, &OpenSessionRequest{EventID: "e1", Quantity: 1})
		assert.ErrorIs(t, err, entity.ErrEventNotPurchasable)
	})

	t.Run("rejects unknown events", func(t *testing.T) {
		svc := NewPurchaseService(newFakeEventRepo(), newFakeMemberRepo(), newFakeSessionStore())

		_, err := svc.OpenSession(ctx, &OpenSessionRequest{EventID: "nope", Quantity: 1})
		assert.ErrorIs(t, err, entity.ErrEventNotFound)
	})
}

func openSessionForTest(t *testing.T, svc PurchaseService, quantity int) *entity.PurchaseSession {
	t.Helper()
	session, err := svc.OpenSession(context.Background(), &OpenSessionRequest{EventID: "e1", Quantity: quantity})
	require.NoError(t, err)
	return session
}

func TestSubmitConsentFlow(t *testing.T) {
	ctx := context.Background()
	members := newFakeMemberRepo("giulia0@example.com")
	store := newFakeSessionStore()
	svc := NewPurchaseService(newFakeEventRepo(testEvent("only_members")), members, store)

	session := openSessionForTest(t, svc, 2)
	_, err := svc.Advance(ctx, session.ID, participantN(0))
	require.NoError(t, err)

	submitted, err := svc.Submit(ctx, session.ID, participantN(1))
	require.NoError(t, err)
	assert.Equal(t, entity.StateConsentRequired, submitted.State)
	assert.Equal(t, []string{"giulia1@example.com"}, submitted.NonMembers)
	assert.False(t, submitted.ConsentChecked)

	// The stored session reflects the consent gate.
	stored, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateConsentRequired, stored.State)

	// Close is blocked until consent is given.
	assert.ErrorIs(t, svc.CloseSession(ctx, session.ID), entity.ErrCloseBlocked)

	_, err = svc.SetConsent(ctx, session.ID, true)
	require.NoError(t, err)

	cart, err := svc.Finalize(ctx, session.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), cart.Total)
	assert.Equal(t, []string{"giulia1@example.com"}, cart.EventMeta.NonMembers)
	for _, p := range cart.Participants {
		assert.True(t, p.NewsletterConsent)
	}
}

func TestSubmitMembersOnlyHardBlock(t *testing.T) {
	ctx := context.Background()
	store := newFakeSessionStore()
	svc := NewPurchaseService(newFakeEventRepo(testEvent("only_already_registered_members")), newFakeMemberRepo(), store)

	session := openSessionForTest(t, svc, 1)

	submitted, err := svc.Submit(ctx, session.ID, participantN(0))
	assert.ErrorIs(t, err, entity.ErrMembersOnly)
	assert.Equal(t, entity.StateEditing, submitted.State)
	assert.Equal(t, []string{"giulia0@example.com"}, submitted.NonMembers)

	// The session is editable again, still listing the unmatched data.
	stored, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateEditing, stored.State)
	assert.Equal(t, []string{"giulia0@example.com"}, stored.NonMembers)
}

func TestSubmitAllMembersCompletes(t *testing.T) {
	ctx := context.Background()
	members := newFakeMemberRepo("giulia0@example.com")
	svc := NewPurchaseService(newFakeEventRepo(testEvent("only_members")), members, newFakeSessionStore())

	session := openSessionForTest(t, svc, 1)

	submitted, err := svc.Submit(ctx, session.ID, participantN(0))
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, submitted.State)
	assert.Empty(t, submitted.NonMembers)
}

func TestSubmitBackendFailureReturnsToEditing(t *testing.T) {
	ctx := context.Background()
	members := newFakeMemberRepo()
	members.matchErr = errBackend
	store := newFakeSessionStore()
	svc := NewPurchaseService(newFakeEventRepo(testEvent("public")), members, store)

	session := openSessionForTest(t, svc, 1)

	_, err := svc.Submit(ctx, session.ID, participantN(0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrInvalidTransition)

	stored, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateEditing, stored.State)

	// Retry succeeds once the backend recovers.
	members.matchErr = nil
	submitted, err := svc.Submit(ctx, session.ID, participantN(0))
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, submitted.State)
}

func TestCheckParticipants(t *testing.T) {
	ctx := context.Background()
	members := newFakeMemberRepo("giulia0@example.com")
	svc := NewPurchaseService(newFakeEventRepo(testEvent("public")), members, newFakeSessionStore())

	t.Run("invalid records skip the registry", func(t *testing.T) {
		before := members.matchCalls
		result, err := svc.CheckParticipants(ctx, []entity.Participant{{Name: "G"}, participantN(0)})
		require.NoError(t, err)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "participant 1")
		assert.Equal(t, before, members.matchCalls)
	})

	t.Run("valid records list the non-members", func(t *testing.T) {
		result, err := svc.CheckParticipants(ctx, []entity.Participant{participantN(0), participantN(1)})
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, []string{"giulia1@example.com"}, result.NonMembers)
	})
}

func TestCloseSessionMissingIsNoError(t *testing.T) {
	svc := NewPurchaseService(newFakeEventRepo(), newFakeMemberRepo(), newFakeSessionStore())
	assert.NoError(t, svc.CloseSession(context.Background(), "ghost"))
}
