package service

import (
	"context"
	"errors"
	"time"

	"github.com/mcp-events/ticketflow/internal/entity"
	"github.com/mcp-events/ticketflow/pkg/paypal"
	"github.com/mcp-events/ticketflow/pkg/queue"
)

type fakeEventRepo struct {
	events map[string]*entity.Event
}

func newFakeEventRepo(events ...*entity.Event) *fakeEventRepo {
	repo := &fakeEventRepo{events: make(map[string]*entity.Event)}
	for _, e := range events {
		repo.events[e.ID] = e
	}
	return repo
}

func (r *fakeEventRepo) Create(ctx context.Context, event *entity.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return e, nil
}

func (r *fakeEventRepo) GetAll(ctx context.Context) ([]*entity.Event, error) {
	out := make([]*entity.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeEventRepo) GetActive(ctx context.Context) ([]*entity.Event, error) {
	var out []*entity.Event
	for _, e := range r.events {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, event *entity.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) Delete(ctx context.Context, id string) error {
	delete(r.events, id)
	return nil
}

type fakeMemberRepo struct {
	membersByEmail map[string]bool
	matchErr       error
	matchCalls     int
}

func newFakeMemberRepo(emails ...string) *fakeMemberRepo {
	repo := &fakeMemberRepo{membersByEmail: make(map[string]bool)}
	for _, e := range emails {
		repo.membersByEmail[e] = true
	}
	return repo
}

func (r *fakeMemberRepo) Create(ctx context.Context, member *entity.Member) error {
	r.membersByEmail[member.Email] = true
	return nil
}

func (r *fakeMemberRepo) GetAll(ctx context.Context) ([]*entity.Member, error) {
	return nil, nil
}

func (r *fakeMemberRepo) GetByEmail(ctx context.Context, email string) (*entity.Member, error) {
	return nil, nil
}

func (r *fakeMemberRepo) Matches(ctx context.Context, p *entity.Participant) (bool, error) {
	r.matchCalls++
	if r.matchErr != nil {
		return false, r.matchErr
	}
	return r.membersByEmail[p.Key()], nil
}

type completeCall struct {
	purchase *entity.Purchase
	tickets  []*entity.Ticket
	enroll   []*entity.Member
}

type fakePurchaseRepo struct {
	byOrderID     map[string]*entity.Purchase
	ticketed      []string
	tickets       []*entity.Ticket
	completeCalls []completeCall
	failedStale   int
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{byOrderID: make(map[string]*entity.Purchase)}
}

func (r *fakePurchaseRepo) Create(ctx context.Context, purchase *entity.Purchase) error {
	r.byOrderID[purchase.ProviderOrderID] = purchase
	return nil
}

func (r *fakePurchaseRepo) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*entity.Purchase, error) {
	p, ok := r.byOrderID[providerOrderID]
	if !ok {
		return nil, entity.ErrPurchaseNotFound
	}
	return p, nil
}

func (r *fakePurchaseRepo) GetAll(ctx context.Context) ([]*entity.Purchase, error) {
	return nil, nil
}

func (r *fakePurchaseRepo) Complete(ctx context.Context, purchase *entity.Purchase, tickets []*entity.Ticket, enroll []*entity.Member) error {
	purchase.Status = entity.PurchaseStatusCompleted
	r.completeCalls = append(r.completeCalls, completeCall{purchase: purchase, tickets: tickets, enroll: enroll})
	return nil
}

func (r *fakePurchaseRepo) Fail(ctx context.Context, id string) error {
	for _, p := range r.byOrderID {
		if p.ID == id && p.Status == entity.PurchaseStatusCreated {
			p.Status = entity.PurchaseStatusFailed
		}
	}
	return nil
}

func (r *fakePurchaseRepo) FailStale(ctx context.Context, olderThan time.Time) (int64, error) {
	r.failedStale++
	return 0, nil
}

func (r *fakePurchaseRepo) TicketedEmails(ctx context.Context, eventID string, emails []string) ([]string, error) {
	var out []string
	for _, candidate := range emails {
		for _, ticketed := range r.ticketed {
			if candidate == ticketed {
				out = append(out, candidate)
			}
		}
	}
	return out, nil
}

func (r *fakePurchaseRepo) GetTicketsByEvent(ctx context.Context, eventID string) ([]*entity.Ticket, error) {
	return r.tickets, nil
}

func (r *fakePurchaseRepo) GetTicket(ctx context.Context, id string) (*entity.Ticket, error) {
	for _, t := range r.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, entity.ErrTicketNotFound
}

func (r *fakePurchaseRepo) CheckInTicket(ctx context.Context, id string, at time.Time) error {
	for _, t := range r.tickets {
		if t.ID == id {
			if t.CheckedInAt != nil {
				return entity.ErrAlreadyCheckedIn
			}
			t.CheckedInAt = &at
			return nil
		}
	}
	return entity.ErrTicketNotFound
}

type fakeSessionStore struct {
	sessions map[string]*entity.PurchaseSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*entity.PurchaseSession)}
}

func (s *fakeSessionStore) Save(ctx context.Context, session *entity.PurchaseSession) error {
	clone := *session
	clone.Participants = append([]entity.Participant(nil), session.Participants...)
	s.sessions[session.ID] = &clone
	return nil
}

func (s *fakeSessionStore) Get(ctx context.Context, id string) (*entity.PurchaseSession, error) {
	stored, ok := s.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	clone := *stored
	clone.Participants = append([]entity.Participant(nil), stored.Participants...)
	return &clone, nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type fakeProvider struct {
	createCalls  int
	captureCalls int
	captureErr   error
	captureOrder *paypal.Order
}

func (p *fakeProvider) CreateOrder(ctx context.Context, req *paypal.CreateOrderRequest) (*paypal.Order, error) {
	p.createCalls++
	return &paypal.Order{ID: "ORDER-1", Status: "CREATED"}, nil
}

func (p *fakeProvider) CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error) {
	p.captureCalls++
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	if p.captureOrder != nil {
		return p.captureOrder, nil
	}
	return &paypal.Order{ID: orderID, Status: "COMPLETED"}, nil
}

type fakePublisher struct {
	published []*queue.Task
}

func (p *fakePublisher) Publish(ctx context.Context, task *queue.Task) error {
	p.published = append(p.published, task)
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, tasks []*queue.Task) error {
	p.published = append(p.published, tasks...)
	return nil
}

type fakeJobStore struct {
	jobs map[string]*entity.NotifyJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*entity.NotifyJob)}
}

func (s *fakeJobStore) Start(ctx context.Context, job *entity.NotifyJob) error {
	for _, existing := range s.jobs {
		if existing.Status == entity.JobStatusRunning {
			existing.Status = entity.JobStatusCancelled
		}
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobStore) Get(ctx context.Context, jobID string) (*entity.NotifyJob, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	return job, nil
}

func (s *fakeJobStore) Status(ctx context.Context, jobID string) (string, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return "", entity.ErrJobNotFound
	}
	return job.Status, nil
}

func (s *fakeJobStore) RecordSent(ctx context.Context, jobID string) error {
	job, ok := s.jobs[jobID]
	if !ok {
		return entity.ErrJobNotFound
	}
	job.Sent++
	if job.Sent+job.Failed >= job.Total {
		job.Status = entity.JobStatusCompleted
	}
	return nil
}

func (s *fakeJobStore) RecordFailed(ctx context.Context, jobID string) error {
	job, ok := s.jobs[jobID]
	if !ok {
		return entity.ErrJobNotFound
	}
	job.Failed++
	if job.Sent+job.Failed >= job.Total {
		job.Status = entity.JobStatusCompleted
	}
	return nil
}

func (s *fakeJobStore) Cancel(ctx context.Context, jobID string) error {
	job, ok := s.jobs[jobID]
	if !ok {
		return entity.ErrJobNotFound
	}
	if job.Status == entity.JobStatusRunning {
		job.Status = entity.JobStatusCancelled
	}
	return nil
}

type fakeNotifier struct {
	broadcasts []string
	sendErr    error
}

func (n *fakeNotifier) NotifyPurchaseCompleted(ctx context.Context, event *entity.Event, purchase *entity.Purchase) {
}

func (n *fakeNotifier) SendBroadcast(ctx context.Context, recipient, message string) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.broadcasts = append(n.broadcasts, recipient)
	return nil
}

var errBackend = errors.New("backend unavailable")
