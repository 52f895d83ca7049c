package service

import (
	"context"

	"github.com/mcp-events/ticketflow/internal/entity"
	"github.com/mcp-events/ticketflow/pkg/queue"
)

// EventService manages the event catalogue.
type EventService interface {
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id string) (*entity.Event, error)
	GetActiveEvents(ctx context.Context) ([]*entity.Event, error)
	GetAllEvents(ctx context.Context) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// PurchaseService runs the participant collection stepper for a checkout.
type PurchaseService interface {
	OpenSession(ctx context.Context, req *OpenSessionRequest) (*entity.PurchaseSession, error)
	GetSession(ctx context.Context, sessionID string) (*entity.PurchaseSession, error)
	SaveParticipant(ctx context.Context, sessionID string, p entity.Participant) (*entity.PurchaseSession, error)
	Advance(ctx context.Context, sessionID string, p entity.Participant) (*entity.PurchaseSession, error)
	Back(ctx context.Context, sessionID string) (*entity.PurchaseSession, error)

	// Submit validates the final record, runs the membership check and
	// resolves the outcome against the event's purchase mode.
	Submit(ctx context.Context, sessionID string, p entity.Participant) (*entity.PurchaseSession, error)
	SetConsent(ctx context.Context, sessionID string, checked bool) (*entity.PurchaseSession, error)
	CloseSession(ctx context.Context, sessionID string) error

	// Finalize turns a completed session into the cart sent to order creation.
	Finalize(ctx context.Context, sessionID string, newsletterConsent bool) (*entity.Cart, error)

	// CheckParticipants is the standalone membership probe used outside a
	// session, validating records and listing the non-members among them.
	CheckParticipants(ctx context.Context, participants []entity.Participant) (*entity.EligibilityResult, error)
}

// PaymentService talks to the payment provider and persists purchases.
type PaymentService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error)
	CaptureOrder(ctx context.Context, providerOrderID string) (*CaptureResult, error)

	// ExpirePurchase fails one pending purchase whose payment never
	// arrived; completed purchases are untouched.
	ExpirePurchase(ctx context.Context, purchaseID string) error
	FailStalePurchases(ctx context.Context) error
}

// AdminService is the authenticated back office surface.
type AdminService interface {
	Login(ctx context.Context, username, password string) (string, error)
	ParseToken(tokenString string) (string, error)

	GetPurchases(ctx context.Context) ([]*entity.Purchase, error)
	GetEventTickets(ctx context.Context, eventID string) ([]*entity.Ticket, error)
	CheckInTicket(ctx context.Context, ticketID string) (*entity.Ticket, error)

	GetMembers(ctx context.Context) ([]*entity.Member, error)
	CreateMember(ctx context.Context, req *CreateMemberRequest) (*entity.Member, error)
}

// JobService runs notify-all-participants broadcasts as background jobs.
type JobService interface {
	StartBroadcast(ctx context.Context, req *StartBroadcastRequest) (*entity.NotifyJob, error)
	GetJob(ctx context.Context, jobID string) (*entity.NotifyJob, error)
	CancelJob(ctx context.Context, jobID string) error

	// HandleTask processes one fanout task from the queue.
	HandleTask(ctx context.Context, task *queue.Task) error
}

// TaskPublisher pushes background tasks onto the queue. Satisfied by
// queue.RedisQueue.
type TaskPublisher interface {
	Publish(ctx context.Context, task *queue.Task) error
	PublishBatch(ctx context.Context, tasks []*queue.Task) error
}

// SessionStore persists purchase sessions. Satisfied by the Redis store.
type SessionStore interface {
	Save(ctx context.Context, session *entity.PurchaseSession) error
	Get(ctx context.Context, id string) (*entity.PurchaseSession, error)
	Delete(ctx context.Context, id string) error
}

// JobStore tracks broadcast job state. Satisfied by the Redis store.
type JobStore interface {
	Start(ctx context.Context, job *entity.NotifyJob) error
	Get(ctx context.Context, jobID string) (*entity.NotifyJob, error)
	Status(ctx context.Context, jobID string) (string, error)
	RecordSent(ctx context.Context, jobID string) error
	RecordFailed(ctx context.Context, jobID string) error
	Cancel(ctx context.Context, jobID string) error
}

// OpenSessionRequest opens a participant collection session.
type OpenSessionRequest struct {
	EventID  string `json:"event_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=20"`
}

// CreateEventRequest carries the data needed to create an event.
type CreateEventRequest struct {
	Title          string   `json:"title" binding:"required,min=1,max=255"`
	Date           string   `json:"date" binding:"required"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	Location       string   `json:"location"`
	Price          *int64   `json:"price"`
	Fee            int64    `json:"fee"`
	MembershipFee  int64    `json:"membership_fee"`
	Lineup         []string `json:"lineup"`
	Note           string   `json:"note"`
	Active         bool     `json:"active"`
	ImageURL       string   `json:"image_url"`
	OnlyMembers    bool     `json:"only_members"`
	PurchasePolicy string   `json:"purchase_policy"`
}

// UpdateEventRequest carries a partial event update.
type UpdateEventRequest struct {
	Title          *string  `json:"title,omitempty"`
	Date           *string  `json:"date,omitempty"`
	StartTime      *string  `json:"start_time,omitempty"`
	EndTime        *string  `json:"end_time,omitempty"`
	Location       *string  `json:"location,omitempty"`
	Price          *int64   `json:"price,omitempty"`
	Fee            *int64   `json:"fee,omitempty"`
	MembershipFee  *int64   `json:"membership_fee,omitempty"`
	Lineup         []string `json:"lineup,omitempty"`
	Note           *string  `json:"note,omitempty"`
	Active         *bool    `json:"active,omitempty"`
	ImageURL       *string  `json:"image_url,omitempty"`
	OnlyMembers    *bool    `json:"only_members,omitempty"`
	PurchasePolicy *string  `json:"purchase_policy,omitempty"`
	PhotosReady    *bool    `json:"photos_ready,omitempty"`
}

// CreateOrderRequest opens a provider order for a finalized cart.
type CreateOrderRequest struct {
	Cart entity.Cart `json:"cart" binding:"required"`
}

// OrderResponse is returned by order creation; OrderID goes back to the
// buyer's payment widget.
type OrderResponse struct {
	OrderID    string `json:"order_id"`
	PurchaseID string `json:"purchase_id"`
}

// CaptureResult classifies a capture attempt for the buyer-facing layer.
type CaptureResult struct {
	PurchaseID  string `json:"purchase_id,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"`
	Error       string `json:"error,omitempty"`
	Description string `json:"description,omitempty"`
}

// Completed reports whether the capture went through.
func (r *CaptureResult) Completed() bool {
	return r.PurchaseID != ""
}

// CreateMemberRequest registers a member from the back office.
type CreateMemberRequest struct {
	Name      string `json:"name" binding:"required,min=2"`
	Surname   string `json:"surname" binding:"required,min=2"`
	Email     string `json:"email" binding:"required,email"`
	Birthdate string `json:"birthdate" binding:"required"`
}

// StartBroadcastRequest starts a notify-all job for an event.
type StartBroadcastRequest struct {
	EventID string `json:"event_id" binding:"required"`
	Message string `json:"message" binding:"required,min=1,max=4000"`
}
