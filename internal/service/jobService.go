package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	repository "github.com/mcp-events/ticketflow/internal/database/postgres"
	"github.com/mcp-events/ticketflow/internal/entity"
	"github.com/mcp-events/ticketflow/internal/notification"
	"github.com/mcp-events/ticketflow/pkg/queue"
)

type jobService struct {
	eventRepo    repository.EventRepository
	purchaseRepo repository.PurchaseRepository
	jobs         JobStore
	publisher    TaskPublisher
	notifier     notification.Notifier
}

func NewJobService(
	eventRepo repository.EventRepository,
	purchaseRepo repository.PurchaseRepository,
	jobs JobStore,
	publisher TaskPublisher,
	notifier notification.Notifier,
) JobService {
	return &jobService{
		eventRepo:    eventRepo,
		purchaseRepo: purchaseRepo,
		jobs:         jobs,
		publisher:    publisher,
		notifier:     notifier,
	}
}

// StartBroadcast collects the event's ticket holders, registers the job and
// fans out one queue task per recipient. A job already in flight is
// superseded: its remaining tasks drop themselves when they see the
// cancelled status.
func (s *jobService) StartBroadcast(ctx context.Context, req *StartBroadcastRequest) (*entity.NotifyJob, error) {
	if _, err := s.eventRepo.GetByID(ctx, req.EventID); err != nil {
		return nil, err
	}

	tickets, err := s.purchaseRepo.GetTicketsByEvent(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}

	recipients := make([]string, 0, len(tickets))
	seen := make(map[string]bool, len(tickets))
	for _, t := range tickets {
		if seen[t.Email] {
			continue
		}
		seen[t.Email] = true
		recipients = append(recipients, t.Email)
	}
	if len(recipients) == 0 {
		return nil, entity.ErrNoRecipients
	}

	job := &entity.NotifyJob{
		ID:        uuid.NewString(),
		EventID:   req.EventID,
		Message:   req.Message,
		Status:    entity.JobStatusRunning,
		Total:     len(recipients),
		CreatedAt: time.Now(),
	}
	if err := s.jobs.Start(ctx, job); err != nil {
		return nil, err
	}

	tasks := make([]*queue.Task, 0, len(recipients))
	for _, recipient := range recipients {
		tasks = append(tasks, queue.NewTask(queue.TaskNotifyRecipient, map[string]interface{}{
			"job_id":    job.ID,
			"recipient": recipient,
			"message":   req.Message,
		}))
	}
	if err := s.publisher.PublishBatch(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to enqueue broadcast: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"event_id":   req.EventID,
		"recipients": len(recipients),
	}).Info("Broadcast job started")

	return job, nil
}

func (s *jobService) GetJob(ctx context.Context, jobID string) (*entity.NotifyJob, error) {
	return s.jobs.Get(ctx, jobID)
}

func (s *jobService) CancelJob(ctx context.Context, jobID string) error {
	if err := s.jobs.Cancel(ctx, jobID); err != nil {
		return err
	}
	logrus.Infof("Broadcast job %s cancelled", jobID)
	return nil
}

// HandleTask delivers one broadcast message. Tasks belonging to a job that
// is no longer running are dropped without a send and without a retry.
func (s *jobService) HandleTask(ctx context.Context, task *queue.Task) error {
	jobID := task.String("job_id")
	recipient := task.String("recipient")
	message := task.String("message")
	if jobID == "" || recipient == "" {
		return fmt.Errorf("invalid broadcast task %s", task.ID)
	}

	status, err := s.jobs.Status(ctx, jobID)
	if err != nil {
		return err
	}
	if status != entity.JobStatusRunning {
		logrus.Debugf("Dropping task %s, job %s is %s", task.ID, jobID, status)
		return nil
	}

	if err := s.notifier.SendBroadcast(ctx, recipient, message); err != nil {
		// Only the final failed attempt counts against the job. A task
		// that arrives without a retry budget gets the queue default
		// instead of being treated as terminally failed.
		maxRetries := task.MaxRetries
		if maxRetries <= 0 {
			maxRetries = queue.DefaultMaxRetries
		}
		if task.Attempts >= maxRetries {
			if recordErr := s.jobs.RecordFailed(ctx, jobID); recordErr != nil {
				logrus.Errorf("Failed to record broadcast failure: %v", recordErr)
			}
		}
		return err
	}
	return s.jobs.RecordSent(ctx, jobID)
}
