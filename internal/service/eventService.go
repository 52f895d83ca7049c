package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	repository "github.com/mcp-events/ticketflow/internal/database/postgres"
	"github.com/mcp-events/ticketflow/internal/entity"
)

type eventService struct {
	eventRepo repository.EventRepository
}

func NewEventService(eventRepo repository.EventRepository) EventService {
	return &eventService{eventRepo: eventRepo}
}

func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error) {
	date, err := entity.ParseEventDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid event date: %w", err)
	}

	now := time.Now()
	event := &entity.Event{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Location:       req.Location,
		Price:          req.Price,
		Fee:            req.Fee,
		MembershipFee:  req.MembershipFee,
		Lineup:         req.Lineup,
		Note:           req.Note,
		Active:         req.Active,
		ImageURL:       req.ImageURL,
		OnlyMembers:    req.OnlyMembers,
		PurchasePolicy: req.PurchasePolicy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*entity.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

func (s *eventService) GetActiveEvents(ctx context.Context) ([]*entity.Event, error) {
	return s.eventRepo.GetActive(ctx)
}

func (s *eventService) GetAllEvents(ctx context.Context) ([]*entity.Event, error) {
	return s.eventRepo.GetAll(ctx)
}

func (s *eventService) UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*entity.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Date != nil {
		date, err := entity.ParseEventDate(*req.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid event date: %w", err)
		}
		event.Date = date
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Price != nil {
		event.Price = req.Price
	}
	if req.Fee != nil {
		event.Fee = *req.Fee
	}
	if req.MembershipFee != nil {
		event.MembershipFee = *req.MembershipFee
	}
	if req.Lineup != nil {
		event.Lineup = req.Lineup
	}
	if req.Note != nil {
		event.Note = *req.Note
	}
	if req.Active != nil {
		event.Active = *req.Active
	}
	if req.ImageURL != nil {
		event.ImageURL = *req.ImageURL
	}
	if req.OnlyMembers != nil {
		event.OnlyMembers = *req.OnlyMembers
	}
	if req.PurchasePolicy != nil {
		event.PurchasePolicy = *req.PurchasePolicy
	}
	if req.PhotosReady != nil {
		event.PhotosReady = *req.PhotosReady
	}
	event.UpdatedAt = time.Now()

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	return s.eventRepo.Delete(ctx, id)
}
