package repository

import (
	"context"
	"time"

	"github.com/mcp-events/ticketflow/internal/entity"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	GetAll(ctx context.Context) ([]*entity.Event, error)
	GetActive(ctx context.Context) ([]*entity.Event, error)
	Update(ctx context.Context, event *entity.Event) error
	Delete(ctx context.Context, id string) error
}

type MemberRepository interface {
	Create(ctx context.Context, member *entity.Member) error
	GetAll(ctx context.Context) ([]*entity.Member, error)
	GetByEmail(ctx context.Context, email string) (*entity.Member, error)

	// Matches reports whether a participant corresponds to a registered
	// member, by email or by (name, surname, birthdate).
	Matches(ctx context.Context, p *entity.Participant) (bool, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *entity.Purchase) error
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*entity.Purchase, error)
	GetAll(ctx context.Context) ([]*entity.Purchase, error)

	// Complete flips the purchase to completed, writes its tickets and
	// enrolls the given members in a single transaction.
	Complete(ctx context.Context, purchase *entity.Purchase, tickets []*entity.Ticket, enroll []*entity.Member) error

	// Fail marks one purchase as failed if it is still in created state.
	// Completed or already failed purchases are left alone.
	Fail(ctx context.Context, id string) error

	// FailStale marks purchases stuck in created state older than the
	// cutoff as failed and returns how many were touched.
	FailStale(ctx context.Context, olderThan time.Time) (int64, error)

	// TicketedEmails returns which of the given emails already hold a
	// ticket for the event (completed purchases only).
	TicketedEmails(ctx context.Context, eventID string, emails []string) ([]string, error)

	GetTicketsByEvent(ctx context.Context, eventID string) ([]*entity.Ticket, error)
	GetTicket(ctx context.Context, id string) (*entity.Ticket, error)
	CheckInTicket(ctx context.Context, id string, at time.Time) error
}
