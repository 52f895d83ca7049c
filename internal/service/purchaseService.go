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
)

type purchaseService struct {
	eventRepo  repository.EventRepository
	memberRepo repository.MemberRepository
	sessions   SessionStore
}

func NewPurchaseService(
	eventRepo repository.EventRepository,
	memberRepo repository.MemberRepository,
	sessions SessionStore,
) PurchaseService {
	return &purchaseService{
		eventRepo:  eventRepo,
		memberRepo: memberRepo,
		sessions:   sessions,
	}
}

// OpenSession checks the event is sellable under its purchase mode and
// opens a collection session sized to the requested quantity.
func (s *purchaseService) OpenSession(ctx context.Context, req *OpenSessionRequest) (*entity.PurchaseSession, error) {
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Purchasable(time.Now()) {
		return nil, entity.ErrEventNotPurchasable
	}
	if entity.ResolvePurchaseMode(event) == entity.ModeOnRequest {
		return nil, entity.ErrOnRequestOnly
	}

	session, err := entity.NewPurchaseSession(uuid.NewString(), event.ID, req.Quantity)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"event_id":   event.ID,
		"quantity":   req.Quantity,
	}).Info("Purchase session opened")

	return session, nil
}

func (s *purchaseService) GetSession(ctx context.Context, sessionID string) (*entity.PurchaseSession, error) {
	return s.sessions.Get(ctx, sessionID)
}

func (s *purchaseService) SaveParticipant(ctx context.Context, sessionID string, p entity.Participant) (*entity.PurchaseSession, error) {
	return s.mutate(ctx, sessionID, func(session *entity.PurchaseSession) error {
		return session.SaveCurrent(p)
	})
}

func (s *purchaseService) Advance(ctx context.Context, sessionID string, p entity.Participant) (*entity.PurchaseSession, error) {
	return s.mutate(ctx, sessionID, func(session *entity.PurchaseSession) error {
		return session.Advance(p)
	})
}

func (s *purchaseService) Back(ctx context.Context, sessionID string) (*entity.PurchaseSession, error) {
	return s.mutate(ctx, sessionID, func(session *entity.PurchaseSession) error {
		return session.Back()
	})
}

// Submit moves the session through the in-flight membership check. A
// backend failure returns the session to editing so the submit can be
// retried; a hard members-only block does the same with ErrMembersOnly.
func (s *purchaseService) Submit(ctx context.Context, sessionID string, p entity.Participant) (*entity.PurchaseSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}
	mode := entity.ResolvePurchaseMode(event)

	if err := session.BeginSubmit(p); err != nil {
		return session, err
	}

	result, err := s.checkEligibility(ctx, session.Participants)
	if err != nil {
		session.FailSubmit()
		if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
			logrus.Errorf("Failed to save session after eligibility failure: %v", saveErr)
		}
		return session, fmt.Errorf("eligibility check failed: %w", err)
	}

	applyErr := session.ApplyEligibility(mode, *result)
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	if applyErr != nil {
		return session, applyErr
	}

	logrus.WithFields(logrus.Fields{
		"session_id":  session.ID,
		"state":       session.State,
		"non_members": len(session.NonMembers),
	}).Info("Purchase session submitted")

	return session, nil
}

func (s *purchaseService) SetConsent(ctx context.Context, sessionID string, checked bool) (*entity.PurchaseSession, error) {
	return s.mutate(ctx, sessionID, func(session *entity.PurchaseSession) error {
		return session.SetConsent(checked)
	})
}

// CloseSession discards a session. Blocked while the consent step is
// pending: the buyer must either consent or step back explicitly.
func (s *purchaseService) CloseSession(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, entity.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !session.CanClose() {
		return entity.ErrCloseBlocked
	}
	return s.sessions.Delete(ctx, sessionID)
}

// Finalize completes a consent-gated session if needed and derives the cart.
// The session stays alive until the order is actually created.
func (s *purchaseService) Finalize(ctx context.Context, sessionID string, newsletterConsent bool) (*entity.Cart, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.State == entity.StateConsentRequired {
		if err := session.Finalize(); err != nil {
			return nil, err
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
	}
	if session.State != entity.StateCompleted {
		return nil, entity.ErrInvalidTransition
	}

	event, err := s.eventRepo.GetByID(ctx, session.EventID)
	if err != nil {
		return nil, err
	}

	cart := entity.BuildCart(event, session.Quantity, session.Participants, newsletterConsent,
		entity.CartMeta{NonMembers: session.NonMembers})
	return &cart, nil
}

// CheckParticipants validates the given records and reports which of them
// are not in the membership registry. Invalid records make the whole set
// invalid, each reported in Errors, and skip the registry lookup.
func (s *purchaseService) CheckParticipants(ctx context.Context, participants []entity.Participant) (*entity.EligibilityResult, error) {
	var validationErrs []string
	for i := range participants {
		if err := participants[i].Validate(); err != nil {
			validationErrs = append(validationErrs, fmt.Sprintf("participant %d: %v", i+1, err))
		}
	}
	if len(validationErrs) > 0 {
		return &entity.EligibilityResult{Valid: false, Errors: validationErrs}, nil
	}

	result, err := s.checkEligibility(ctx, participants)
	if err != nil {
		return nil, err
	}
	result.Valid = true
	return result, nil
}

// checkEligibility looks each participant up in the membership registry,
// matching by email or by name, surname and birthdate.
func (s *purchaseService) checkEligibility(ctx context.Context, participants []entity.Participant) (*entity.EligibilityResult, error) {
	result := &entity.EligibilityResult{NonMembers: []string{}}

	seen := make(map[string]bool, len(participants))
	for i := range participants {
		key := participants[i].Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		matched, err := s.memberRepo.Matches(ctx, &participants[i])
		if err != nil {
			return nil, err
		}
		if !matched {
			result.NonMembers = append(result.NonMembers, key)
		}
	}
	return result, nil
}

// mutate loads a session, applies op and persists the result. A rejected
// op leaves the stored session untouched and returns the loaded snapshot
// alongside the domain error.
func (s *purchaseService) mutate(ctx context.Context, sessionID string, op func(*entity.PurchaseSession) error) (*entity.PurchaseSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if opErr := op(session); opErr != nil {
		return session, opErr
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
