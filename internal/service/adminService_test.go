package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-events/ticketflow/config"
	"github.com/mcp-events/ticketflow/internal/entity"
)

func adminConfigForTest() *config.AdminConfig {
	return &config.AdminConfig{
		Username:      "backoffice",
		Password:      "segretissimo",
		JWTSecret:     "test-secret",
		JWTExpiration: time.Hour,
	}
}

func TestAdminLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewAdminService(newFakePurchaseRepo(), newFakeMemberRepo(), adminConfigForTest())

	t.Run("valid credentials issue a parseable token", func(t *testing.T) {
		token, err := svc.Login(ctx, "backoffice", "segretissimo")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		subject, err := svc.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, "backoffice", subject)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.Login(ctx, "backoffice", "sbagliata")
		assert.ErrorIs(t, err, entity.ErrUnauthorized)
	})

	t.Run("wrong username is rejected", func(t *testing.T) {
		_, err := svc.Login(ctx, "intruso", "segretissimo")
		assert.ErrorIs(t, err, entity.ErrUnauthorized)
	})
}

func TestAdminParseToken(t *testing.T) {
	svc := NewAdminService(newFakePurchaseRepo(), newFakeMemberRepo(), adminConfigForTest())

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := svc.ParseToken("not-a-token")
		assert.ErrorIs(t, err, entity.ErrUnauthorized)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := NewAdminService(newFakePurchaseRepo(), newFakeMemberRepo(), &config.AdminConfig{
			Username:      "backoffice",
			Password:      "segretissimo",
			JWTSecret:     "other-secret",
			JWTExpiration: time.Hour,
		})
		token, err := other.Login(context.Background(), "backoffice", "segretissimo")
		require.NoError(t, err)

		_, err = svc.ParseToken(token)
		assert.ErrorIs(t, err, entity.ErrUnauthorized)
	})
}

func TestCheckInTicket(t *testing.T) {
	ctx := context.Background()
	purchaseRepo := newFakePurchaseRepo()
	purchaseRepo.tickets = []*entity.Ticket{{ID: "t1", EventID: "e1", Email: "giulia0@example.com"}}
	svc := NewAdminService(purchaseRepo, newFakeMemberRepo(), adminConfigForTest())

	ticket, err := svc.CheckInTicket(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, ticket.CheckedInAt)

	_, err = svc.CheckInTicket(ctx, "t1")
	assert.ErrorIs(t, err, entity.ErrAlreadyCheckedIn)

	_, err = svc.CheckInTicket(ctx, "ghost")
	assert.ErrorIs(t, err, entity.ErrTicketNotFound)
}

func TestCreateMember(t *testing.T) {
	ctx := context.Background()
	memberRepo := newFakeMemberRepo()
	svc := NewAdminService(newFakePurchaseRepo(), memberRepo, adminConfigForTest())

	t.Run("normalizes the email and stamps the source", func(t *testing.T) {
		member, err := svc.CreateMember(ctx, &CreateMemberRequest{
			Name:      "Giulia",
			Surname:   "Rossi",
			Email:     "  Giulia.Rossi@Example.com ",
			Birthdate: "15-04-1994",
		})
		require.NoError(t, err)
		assert.Equal(t, "giulia.rossi@example.com", member.Email)
		assert.Equal(t, entity.MemberSourceAdmin, member.Source)
		assert.True(t, memberRepo.membersByEmail["giulia.rossi@example.com"])
	})

	t.Run("rejects an unparseable birthdate", func(t *testing.T) {
		_, err := svc.CreateMember(ctx, &CreateMemberRequest{
			Name:      "Giulia",
			Surname:   "Rossi",
			Email:     "giulia@example.com",
			Birthdate: "1994-04-15",
		})
		assert.Error(t, err)
	})
}
