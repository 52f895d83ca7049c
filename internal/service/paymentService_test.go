package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-events/ticketflow/internal/entity"
	"github.com/mcp-events/ticketflow/pkg/paypal"
	"github.com/mcp-events/ticketflow/pkg/queue"
)

func newPaymentServiceForTest(eventRepo *fakeEventRepo, purchaseRepo *fakePurchaseRepo, provider *fakeProvider, publisher TaskPublisher) PaymentService {
	return NewPaymentService(eventRepo, purchaseRepo, provider, publisher, nil, nil, "EUR", time.Hour)
}

func cartFor(event *entity.Event, participants ...entity.Participant) entity.Cart {
	return entity.BuildCart(event, len(participants), participants, false, entity.CartMeta{})
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates provider order and pending purchase", func(t *testing.T) {
		event := testEvent("public")
		purchaseRepo := newFakePurchaseRepo()
		provider := &fakeProvider{}
		publisher := &fakePublisher{}
		svc := newPaymentServiceForTest(newFakeEventRepo(event), purchaseRepo, provider, publisher)

		resp, err := svc.CreateOrder(ctx, &CreateOrderRequest{Cart: cartFor(event, participantN(0), participantN(1))})
		require.NoError(t, err)
		assert.Equal(t, "ORDER-1", resp.OrderID)
		assert.NotEmpty(t, resp.PurchaseID)

		purchase := purchaseRepo.byOrderID["ORDER-1"]
		require.NotNil(t, purchase)
		assert.Equal(t, entity.PurchaseStatusCreated, purchase.Status)
		assert.Equal(t, int64(4200), purchase.Amount)
		assert.Len(t, purchase.Participants, 2)

		// An expiry task is scheduled for the pending purchase.
		require.Len(t, publisher.published, 1)
		assert.Equal(t, queue.TaskExpirePurchase, publisher.published[0].Type)
	})

	t.Run("total comes from the event, not the client cart", func(t *testing.T) {
		event := testEvent("public")
		purchaseRepo := newFakePurchaseRepo()
		svc := newPaymentServiceForTest(newFakeEventRepo(event), purchaseRepo, &fakeProvider{}, nil)

		cart := cartFor(event, participantN(0))
		cart.Total = 1 // Tampered client value.

		_, err := svc.CreateOrder(ctx, &CreateOrderRequest{Cart: cart})
		require.NoError(t, err)
		assert.Equal(t, int64(2100), purchaseRepo.byOrderID["ORDER-1"].Amount)
	})

	t.Run("already ticketed participant blocks before the provider", func(t *testing.T) {
		event := testEvent("public")
		purchaseRepo := newFakePurchaseRepo()
		purchaseRepo.ticketed = []string{"giulia0@example.com"}
		provider := &fakeProvider{}
		svc := newPaymentServiceForTest(newFakeEventRepo(event), purchaseRepo, provider, nil)

		_, err := svc.CreateOrder(ctx, &CreateOrderRequest{Cart: cartFor(event, participantN(0))})
		assert.ErrorIs(t, err, entity.ErrDuplicateParticipants)
		assert.Zero(t, provider.createCalls)
	})

	t.Run("repeated participant inside the cart blocks before the provider", func(t *testing.T) {
		event := testEvent("public")
		provider := &fakeProvider{}
		svc := newPaymentServiceForTest(newFakeEventRepo(event), newFakePurchaseRepo(), provider, nil)

		_, err := svc.CreateOrder(ctx, &CreateOrderRequest{Cart: cartFor(event, participantN(0), participantN(0))})
		assert.ErrorIs(t, err, entity.ErrDuplicateParticipants)
		assert.Zero(t, provider.createCalls)
	})

	t.Run("on request events have no checkout", func(t *testing.T) {
		event := testEvent("on_request")
		svc := newPaymentServiceForTest(newFakeEventRepo(event), newFakePurchaseRepo(), &fakeProvider{}, nil)

		_, err := svc.CreateOrder(ctx, &CreateOrderRequest{Cart: cartFor(event, participantN(0))})
		assert.ErrorIs(t, err, entity.ErrOnRequestOnly)
	})
}

func createPendingPurchase(t *testing.T, svc PaymentService, cart entity.Cart) string {
	t.Helper()
	resp, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{Cart: cart})
	require.NoError(t, err)
	return resp.OrderID
}

func TestCaptureOrderSuccess(t *testing.T) {
	ctx := context.Background()
	event := testEvent("only_members")
	purchaseRepo := newFakePurchaseRepo()
	provider := &fakeProvider{}
	svc := newPaymentServiceForTest(newFakeEventRepo(event), purchaseRepo, provider, nil)

	cart := entity.BuildCart(event, 2, []entity.Participant{participantN(0), participantN(1)}, true,
		entity.CartMeta{NonMembers: []string{"giulia1@example.com"}})
	orderID := createPendingPurchase(t, svc, cart)

	result, err := svc.CaptureOrder(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, result.Completed())
	assert.Empty(t, result.Error)

	require.Len(t, purchaseRepo.completeCalls, 1)
	call := purchaseRepo.completeCalls[0]
	assert.Len(t, call.tickets, 2)
	for _, ticket := range call.tickets {
		assert.True(t, ticket.NewsletterConsent)
	}

	// Only the flagged non-member is enrolled, as auto-enroll.
	require.Len(t, call.enroll, 1)
	assert.Equal(t, "giulia1@example.com", call.enroll[0].Email)
	assert.Equal(t, entity.MemberSourceAutoEnroll, call.enroll[0].Source)

	// A second capture is idempotent and does not hit the provider again.
	captures := provider.captureCalls
	again, err := svc.CaptureOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, result.PurchaseID, again.PurchaseID)
	assert.Equal(t, captures, provider.captureCalls)
}

func TestCaptureOrderNoEnrollmentForPublicEvents(t *testing.T) {
	ctx := context.Background()
	event := testEvent("public")
	purchaseRepo := newFakePurchaseRepo()
	svc := newPaymentServiceForTest(newFakeEventRepo(event), purchaseRepo, &fakeProvider{}, nil)

	cart := entity.BuildCart(event, 1, []entity.Participant{participantN(0)}, false,
		entity.CartMeta{NonMembers: []string{"giulia0@example.com"}})
	orderID := createPendingPurchase(t, svc, cart)

	_, err := svc.CaptureOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, purchaseRepo.completeCalls, 1)
	assert.Empty(t, purchaseRepo.completeCalls[0].enroll)
}

func TestCaptureOrderClassification(t *testing.T) {
	tests := []struct {
		name       string
		captureErr error
		expected   CaptureResult
	}{
		{
			name: "instrument declined is recoverable",
			captureErr: &paypal.APIError{
				Name:    "UNPROCESSABLE_ENTITY",
				Details: []paypal.ErrorDetail{{Issue: "INSTRUMENT_DECLINED", Description: "The instrument presented was declined."}},
			},
			expected: CaptureResult{Error: "INSTRUMENT_DECLINED", Recoverable: true},
		},
		{
			name: "permission denied is terminal",
			captureErr: &paypal.APIError{
				Name:    "NOT_AUTHORIZED",
				Details: []paypal.ErrorDetail{{Issue: "PERMISSION_DENIED", Description: "You do not have permission."}},
			},
			expected: CaptureResult{Error: "PERMISSION_DENIED"},
		},
		{
			name: "other issues surface the provider description verbatim",
			captureErr: &paypal.APIError{
				Name:    "UNPROCESSABLE_ENTITY",
				Details: []paypal.ErrorDetail{{Issue: "ORDER_NOT_APPROVED", Description: "Payer has not yet approved the Order for payment."}},
			},
			expected: CaptureResult{Error: "ORDER_NOT_APPROVED", Description: "Payer has not yet approved the Order for payment."},
		},
		{
			name:       "malformed provider error collapses to generic",
			captureErr: &paypal.APIError{Name: "INTERNAL_SERVER_ERROR"},
			expected:   CaptureResult{Error: "PAYMENT_FAILED"},
		},
		{
			name:       "transport failure collapses to generic",
			captureErr: errBackend,
			expected:   CaptureResult{Error: "PAYMENT_FAILED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := testEvent("public")
			purchaseRepo := newFakePurchaseRepo()
			provider := &fakeProvider{}
			svc := newPaymentServiceForTest(newFakeEventRepo(event), purchaseRepo, provider, nil)

			orderID := createPendingPurchase(t, svc, cartFor(event, participantN(0)))
			provider.captureErr = tt.captureErr

			result, err := svc.CaptureOrder(context.Background(), orderID)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *result)
			assert.False(t, result.Completed())

			// The purchase stays pending: a recoverable decline can be retried.
			assert.Equal(t, entity.PurchaseStatusCreated, purchaseRepo.byOrderID[orderID].Status)
			assert.Empty(t, purchaseRepo.completeCalls)
		})
	}
}

func TestExpirePurchase(t *testing.T) {
	ctx := context.Background()
	event := testEvent("public")
	purchaseRepo := newFakePurchaseRepo()
	svc := newPaymentServiceForTest(newFakeEventRepo(event), purchaseRepo, &fakeProvider{}, nil)

	t.Run("a pending purchase is failed", func(t *testing.T) {
		orderID := createPendingPurchase(t, svc, cartFor(event, participantN(0)))
		purchase := purchaseRepo.byOrderID[orderID]

		require.NoError(t, svc.ExpirePurchase(ctx, purchase.ID))
		assert.Equal(t, entity.PurchaseStatusFailed, purchase.Status)
	})

	t.Run("a captured purchase is left alone", func(t *testing.T) {
		orderID := createPendingPurchase(t, svc, cartFor(event, participantN(1)))
		purchase := purchaseRepo.byOrderID[orderID]

		_, err := svc.CaptureOrder(ctx, orderID)
		require.NoError(t, err)

		require.NoError(t, svc.ExpirePurchase(ctx, purchase.ID))
		assert.Equal(t, entity.PurchaseStatusCompleted, purchase.Status)
	})
}

func TestCaptureOrderUnknownOrder(t *testing.T) {
	svc := newPaymentServiceForTest(newFakeEventRepo(), newFakePurchaseRepo(), &fakeProvider{}, nil)
	_, err := svc.CaptureOrder(context.Background(), "ghost")
	assert.ErrorIs(t, err, entity.ErrPurchaseNotFound)
}
