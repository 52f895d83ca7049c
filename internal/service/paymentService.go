package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "github.com/mcp-events/ticketflow/internal/database/postgres"
	"github.com/mcp-events/ticketflow/internal/entity"
	"github.com/mcp-events/ticketflow/internal/notification"
	"github.com/mcp-events/ticketflow/pkg/kafka"
	"github.com/mcp-events/ticketflow/pkg/paypal"
	"github.com/mcp-events/ticketflow/pkg/queue"
)

// PaymentProvider is the slice of the provider client the payment flow
// needs. Satisfied by paypal.Client.
type PaymentProvider interface {
	CreateOrder(ctx context.Context, req *paypal.CreateOrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

const (
	captureErrGeneric = "PAYMENT_FAILED"

	purchaseTypeTicket = "ticket"
	paymentMethodCard  = "paypal"
)

type paymentService struct {
	eventRepo    repository.EventRepository
	purchaseRepo repository.PurchaseRepository
	provider     PaymentProvider
	publisher    TaskPublisher
	producer     kafka.Producer
	notifier     notification.Notifier
	currency     string
	maxAge       time.Duration
}

func NewPaymentService(
	eventRepo repository.EventRepository,
	purchaseRepo repository.PurchaseRepository,
	provider PaymentProvider,
	publisher TaskPublisher,
	producer kafka.Producer,
	notifier notification.Notifier,
	currency string,
	maxAge time.Duration,
) PaymentService {
	return &paymentService{
		eventRepo:    eventRepo,
		purchaseRepo: purchaseRepo,
		provider:     provider,
		publisher:    publisher,
		producer:     producer,
		notifier:     notifier,
		currency:     currency,
		maxAge:       maxAge,
	}
}

// CreateOrder verifies the cart against current event data, rejects carts
// containing already-ticketed participants before any provider call, then
// opens the provider order and records the pending purchase.
func (s *paymentService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	cart := req.Cart

	event, err := s.eventRepo.GetByID(ctx, cart.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Purchasable(time.Now()) {
		return nil, entity.ErrEventNotPurchasable
	}
	mode := entity.ResolvePurchaseMode(event)
	if mode == entity.ModeOnRequest {
		return nil, entity.ErrOnRequestOnly
	}
	if cart.Quantity < 1 || len(cart.Participants) != cart.Quantity {
		return nil, entity.ErrInvalidQuantity
	}
	for i := range cart.Participants {
		if err := cart.Participants[i].Validate(); err != nil {
			return nil, err
		}
	}

	if err := s.rejectDuplicates(ctx, event.ID, cart.Participants); err != nil {
		return nil, err
	}

	// Price, fee and total come from the event, never from the client cart.
	total := (event.PriceValue() + event.Fee) * int64(cart.Quantity)

	order, err := s.provider.CreateOrder(ctx, &paypal.CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			Description: event.Title,
			Amount: paypal.Amount{
				CurrencyCode: s.currency,
				Value:        paypal.FormatAmount(total),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider order: %w", err)
	}

	now := time.Now()
	purchase := &entity.Purchase{
		ID:              uuid.NewString(),
		EventID:         event.ID,
		ProviderOrderID: order.ID,
		PurchaseType:    purchaseTypeTicket,
		Status:          entity.PurchaseStatusCreated,
		Quantity:        cart.Quantity,
		Amount:          total,
		PaymentMethod:   paymentMethodCard,
		PurchaseMode:    mode,
		Participants:    copyParticipants(cart.Participants),
		NonMembers:      cart.EventMeta.NonMembers,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	// A delayed cleanup task catches orders that are never captured.
	if s.publisher != nil {
		task := queue.NewDelayedTask(queue.TaskExpirePurchase,
			map[string]interface{}{"purchase_id": purchase.ID},
			now.Add(s.maxAge))
		if err := s.publisher.Publish(ctx, task); err != nil {
			logrus.Errorf("Failed to schedule purchase expiry: %v", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"order_id":    order.ID,
		"event_id":    event.ID,
		"amount":      total,
	}).Info("Provider order created")

	return &OrderResponse{OrderID: order.ID, PurchaseID: purchase.ID}, nil
}

// rejectDuplicates blocks the order when the cart repeats a participant or
// one of them already holds a ticket for the event. Runs before the
// provider is contacted.
func (s *paymentService) rejectDuplicates(ctx context.Context, eventID string, participants []entity.Participant) error {
	seen := make(map[string]bool, len(participants))
	emails := make([]string, 0, len(participants))
	for i := range participants {
		key := participants[i].Key()
		if seen[key] {
			return entity.ErrDuplicateParticipants
		}
		seen[key] = true
		emails = append(emails, key)
	}

	ticketed, err := s.purchaseRepo.TicketedEmails(ctx, eventID, emails)
	if err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if len(ticketed) > 0 {
		return entity.ErrDuplicateParticipants
	}
	return nil
}

// CaptureOrder captures the provider order and classifies the outcome.
// Recoverable declines keep the purchase pending so the buyer can retry
// with another instrument; everything else surfaces the provider's own
// description when one exists.
func (s *paymentService) CaptureOrder(ctx context.Context, providerOrderID string) (*CaptureResult, error) {
	purchase, err := s.purchaseRepo.GetByProviderOrderID(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	if purchase.Status == entity.PurchaseStatusCompleted {
		return &CaptureResult{PurchaseID: purchase.ID}, nil
	}

	order, err := s.provider.CaptureOrder(ctx, providerOrderID)
	if err != nil {
		return classifyCaptureError(err), nil
	}

	if order.CaptureID() == "" && order.Status != "COMPLETED" {
		return &CaptureResult{Error: captureErrGeneric}, nil
	}

	if err := s.completePurchase(ctx, purchase); err != nil {
		return nil, err
	}
	return &CaptureResult{PurchaseID: purchase.ID}, nil
}

// classifyCaptureError maps a provider failure to the buyer-facing result.
// Instrument declines are recoverable, permission failures are terminal,
// any other detailed issue is surfaced verbatim, and malformed responses
// collapse to a generic failure.
func classifyCaptureError(err error) *CaptureResult {
	var apiErr *paypal.APIError
	if !errors.As(err, &apiErr) {
		logrus.Errorf("Capture failed without provider detail: %v", err)
		return &CaptureResult{Error: captureErrGeneric}
	}

	if apiErr.HasIssue(paypal.IssueInstrumentDeclined) {
		return &CaptureResult{
			Error:       paypal.IssueInstrumentDeclined,
			Recoverable: true,
		}
	}
	if apiErr.HasIssue(paypal.IssuePermissionDenied) {
		return &CaptureResult{Error: paypal.IssuePermissionDenied}
	}
	if detail := apiErr.FirstDetail(); detail != nil {
		return &CaptureResult{
			Error:       detail.Issue,
			Description: detail.Description,
		}
	}

	logrus.Errorf("Capture failed with malformed provider error: %v", apiErr)
	return &CaptureResult{Error: captureErrGeneric}
}

// completePurchase flips the purchase, writes its tickets and enrolls
// consenting non-members in one transaction, then fans out the completion
// event and the staff notification.
func (s *paymentService) completePurchase(ctx context.Context, purchase *entity.Purchase) error {
	now := time.Now()

	tickets := make([]*entity.Ticket, 0, len(purchase.Participants))
	for i := range purchase.Participants {
		p := purchase.Participants[i]
		tickets = append(tickets, &entity.Ticket{
			ID:                uuid.NewString(),
			PurchaseID:        purchase.ID,
			EventID:           purchase.EventID,
			Name:              p.Name,
			Surname:           p.Surname,
			Email:             p.Key(),
			Phone:             p.Phone,
			Birthdate:         p.Birthdate,
			NewsletterConsent: p.NewsletterConsent,
			CreatedAt:         now,
		})
	}

	enroll := s.membersToEnroll(purchase, now)

	if err := s.purchaseRepo.Complete(ctx, purchase, tickets, enroll); err != nil {
		return fmt.Errorf("failed to complete purchase: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"tickets":     len(tickets),
		"enrolled":    len(enroll),
	}).Info("Purchase completed")

	if s.producer != nil {
		event := map[string]interface{}{
			"type":        "purchase.completed",
			"purchase_id": purchase.ID,
			"event_id":    purchase.EventID,
			"quantity":    purchase.Quantity,
			"amount":      purchase.Amount,
			"enrolled":    len(enroll),
			"occurred_at": now.Format(time.RFC3339),
		}
		if err := s.producer.SendMessage(ctx, purchase.ID, event); err != nil {
			logrus.Errorf("Failed to publish purchase event: %v", err)
		}
	}

	if s.notifier != nil {
		if event, err := s.eventRepo.GetByID(ctx, purchase.EventID); err == nil {
			s.notifier.NotifyPurchaseCompleted(ctx, event, purchase)
		}
	}
	return nil
}

// membersToEnroll returns the membership rows written on capture: under
// the auto-enroll mode every participant flagged as non-member during the
// eligibility check becomes a member, with no extra charge.
func (s *paymentService) membersToEnroll(purchase *entity.Purchase, now time.Time) []*entity.Member {
	if purchase.PurchaseMode != entity.ModeOnlyMembers || len(purchase.NonMembers) == 0 {
		return nil
	}

	nonMember := make(map[string]bool, len(purchase.NonMembers))
	for _, key := range purchase.NonMembers {
		nonMember[key] = true
	}

	var enroll []*entity.Member
	for i := range purchase.Participants {
		p := purchase.Participants[i]
		if !nonMember[p.Key()] {
			continue
		}
		enroll = append(enroll, &entity.Member{
			ID:        uuid.NewString(),
			Name:      p.Name,
			Surname:   p.Surname,
			Email:     p.Key(),
			Birthdate: p.Birthdate,
			Source:    entity.MemberSourceAutoEnroll,
			CreatedAt: now,
		})
	}
	return enroll
}

// ExpirePurchase fails the purchase an expiry task was scheduled for. A
// purchase captured in the meantime stays completed.
func (s *paymentService) ExpirePurchase(ctx context.Context, purchaseID string) error {
	if err := s.purchaseRepo.Fail(ctx, purchaseID); err != nil {
		return fmt.Errorf("failed to expire purchase: %w", err)
	}
	logrus.Debugf("Expiry processed for purchase %s", purchaseID)
	return nil
}

// FailStalePurchases marks pending purchases older than the configured
// cutoff as failed. Called by the periodic cleanup; expiry tasks without
// a purchase id fall back to it.
func (s *paymentService) FailStalePurchases(ctx context.Context) error {
	n, err := s.purchaseRepo.FailStale(ctx, time.Now().Add(-s.maxAge))
	if err != nil {
		return fmt.Errorf("failed to fail stale purchases: %w", err)
	}
	if n > 0 {
		logrus.Infof("Marked %d stale purchases as failed", n)
	}
	return nil
}

// copyParticipants detaches the stored purchase from the request cart.
func copyParticipants(participants []entity.Participant) []entity.Participant {
	out := make([]entity.Participant, len(participants))
	copy(out, participants)
	return out
}
